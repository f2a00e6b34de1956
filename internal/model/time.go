package model

import (
	"strconv"
	"time"
)

// UnixTime 在 JSON 中序列化为 Unix 秒时间戳，与 API 中 date/*_timestamp 字段的格式一致。
type UnixTime time.Time

// MarshalJSON implements the json.Marshaler interface.
func (t UnixTime) MarshalJSON() ([]byte, error) {
	if time.Time(t).IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(time.Time(t).Unix(), 10)), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (t *UnixTime) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*t = UnixTime{}
		return nil
	}
	sec, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return err
	}
	*t = UnixTime(time.Unix(sec, 0).UTC())
	return nil
}
