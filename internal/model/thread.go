package model

import "time"

// Participant 是邮件地址及显示名。
type Participant struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Thread 对应于 'threads' 表，是一组相关邮件的会话。
type Thread struct {
	ID             int64         `gorm:"primaryKey;autoIncrement"`
	NamespaceID    int64         `gorm:"not null;index"`
	Subject        string        `gorm:"type:varchar(255)"`
	Snippet        string        `gorm:"type:varchar(191)"`
	Participants   []Participant `gorm:"type:text;serializer:json"`
	FirstMessageAt time.Time     `gorm:"not null"`
	LastMessageAt  time.Time     `gorm:"not null;index"`
	Version        int           `gorm:"not null;default:0"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Thread) TableName() string {
	return "threads"
}
