package model

import "time"

// ActionLog 的状态流转：pending -> dispatched，或多次派发失败后 -> failed。
const (
	ActionStatusPending    = "pending"
	ActionStatusDispatched = "dispatched"
	ActionStatusFailed     = "failed"
)

// ActionLog 对应于 'action_log' 表，记录需要回写到邮件服务商的本地修改。
type ActionLog struct {
	ID          int64                  `gorm:"primaryKey;autoIncrement" json:"id"`
	NamespaceID int64                  `gorm:"not null;index" json:"namespace_id"`
	RecordID    int64                  `gorm:"not null" json:"record_id"`
	RecordType  string                 `gorm:"type:varchar(32);not null" json:"record_type"`
	Action      string                 `gorm:"type:varchar(32);not null" json:"action"`
	Extra       map[string]interface{} `gorm:"type:text;serializer:json" json:"extra,omitempty"`
	Status      string                 `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	Retries     int                    `gorm:"not null;default:0" json:"retries"`
	CreatedAt   time.Time              `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time              `gorm:"autoUpdateTime" json:"-"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (ActionLog) TableName() string {
	return "action_log"
}
