package handler

import (
	"errors"
	"net/http"

	"canteen/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// 全レスポンス共通の形 {success, message?, data?, error?}
type Response struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Errors     []string    `json:"errors,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalItems  int64 `json:"totalItems"`
}

func respondOK(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, Response{Success: true, Message: message, Data: data})
}

func fail(c echo.Context, status int, message string) error {
	return c.JSON(status, Response{Success: false, Message: message})
}

func statusOf(kind usecase.ErrorKind) int {
	switch kind {
	case usecase.KindInvalidInput, usecase.KindUnavailable:
		return http.StatusBadRequest
	case usecase.KindUnauthenticated:
		return http.StatusUnauthorized
	case usecase.KindForbidden:
		return http.StatusForbidden
	case usecase.KindNotFound:
		return http.StatusNotFound
	case usecase.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}

	ue, isUsecase := usecase.AsError(err)
	if !isUsecase || ue.Kind == usecase.KindInternal {
		//原因はログにだけ出す
		c.Logger().Errorj(log.JSON{
			"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
			"method":     c.Request().Method,
			"path":       c.Path(),
			"error":      err.Error(),
		})
		return c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Message: "internal error",
			Error:   usecase.KindInternal.String(),
		})
	}

	return c.JSON(statusOf(ue.Kind), Response{
		Success: false,
		Message: ue.Message,
		Error:   ue.Kind.String(),
	})
}

// HTTPErrorHandler はecho自身のエラー（ルートなし・bind失敗など）も同じ形で返す。
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, isString := he.Message.(string); isString {
			msg = m
		}
		_ = fail(c, he.Code, msg)
		return
	}

	_ = writeError(c, err)
}
