package usecase

import (
	"regexp"
	"time"
)

// YYYY-MM-DDTHH:MM[:SS][.sss]Z のみ（UTC以外のオフセットは不可）
var PickupTimePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}(:\d{2})?(\.\d+)?Z$`)

const pickupTimeHint = "pickupTime must be ISO 8601 UTC, e.g. 2025-11-17T10:30:00Z"

// ParsePickupTime は受け取り時刻をUTCのtime.Timeにする。
func ParsePickupTime(s string) (time.Time, error) {
	if !PickupTimePattern.MatchString(s) {
		return time.Time{}, NewError(KindInvalidInput, pickupTimeHint)
	}

	//秒あり（小数秒はParseが読む）
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	//秒なし
	if t, err := time.Parse("2006-01-02T15:04Z", s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, NewError(KindInvalidInput, pickupTimeHint)
}
