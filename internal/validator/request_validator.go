package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"canteen/internal/usecase"

	govalidator "github.com/go-playground/validator/v10"
)

// echo.Validator の実装。スキーマ違反は422で返す。
type RequestValidator struct {
	v *govalidator.Validate
}

// NewRequestValidator はechoに登録するバリデータを作る。
// utcinstant: 受け取り時刻の形式（UTCのみ）
func NewRequestValidator() *RequestValidator {
	v := govalidator.New(govalidator.WithRequiredStructEnabled())

	//エラーメッセージはJSONのキー名で出す
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	//YYYY-MM-DDTHH:MM[:SS][.sss]Z
	_ = v.RegisterValidation("utcinstant", func(fl govalidator.FieldLevel) bool {
		f := fl.Field()
		if f.Kind() == reflect.Ptr {
			if f.IsNil() {
				return true
			}
			f = f.Elem()
		}
		return usecase.PickupTimePattern.MatchString(f.String())
	})

	return &RequestValidator{v: v}
}

func (rv *RequestValidator) Validate(i interface{}) error {
	return rv.v.Struct(i)
}

// Messages はValidationErrorsを人が読める文に直す。
func Messages(err error) []string {
	var verrs govalidator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fieldPath(fe.Namespace())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", field, fe.Param()))
		case "utcinstant":
			msgs = append(msgs, field+" must be ISO 8601 UTC, e.g. 2025-11-17T10:30:00Z")
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return msgs
}

// 先頭の構造体名を落とす（createOrderRequest.items[0].quantity → items[0].quantity）
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
