package model

import "time"

// Attachment 是邮件附件的元数据，附件内容本身保存在对象存储中。
type Attachment struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Message 对应于 'messages' 表。
// 正文不落库，按 DataSHA256 存放在 MinIO 的 raw/ 目录下。
type Message struct {
	ID           int64         `gorm:"primaryKey;autoIncrement"`
	NamespaceID  int64         `gorm:"not null;index"`
	ThreadID     int64         `gorm:"not null;index"`
	Subject      string        `gorm:"type:varchar(255)"`
	Snippet      string        `gorm:"type:varchar(191)"`
	From         []Participant `gorm:"type:text;serializer:json"`
	To           []Participant `gorm:"type:text;serializer:json"`
	Cc           []Participant `gorm:"type:text;serializer:json"`
	Bcc          []Participant `gorm:"type:text;serializer:json"`
	Files        []Attachment  `gorm:"type:text;serializer:json"`
	DataSHA256   string        `gorm:"type:varchar(64);column:data_sha256"`
	Unread       bool          `gorm:"not null;default:true"`
	Starred      bool          `gorm:"not null;default:false"`
	State        string        `gorm:"type:varchar(32)"`
	ReceivedDate time.Time     `gorm:"not null"`
	Version      int           `gorm:"not null;default:0"`
	Categories   []Category    `gorm:"many2many:message_categories"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Message) TableName() string {
	return "messages"
}
