package model

import (
	"fmt"
	"strconv"
)

// EncodePublicID 把内部主键编码为对外暴露的 ID。
// 主键的高位即分片 ID，所以从公开 ID 可以直接定位到所在分片，无需跨分片查找。
func EncodePublicID(id int64) string {
	return strconv.FormatInt(id, 36)
}

// DecodePublicID 是 EncodePublicID 的逆操作。
func DecodePublicID(publicID string) (int64, error) {
	id, err := strconv.ParseInt(publicID, 36, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("无效的 public id: %q", publicID)
	}
	return id, nil
}
