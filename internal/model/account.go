// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// 支持的邮件服务商。Gmail 使用标签语义，其余服务商使用文件夹语义。
const (
	ProviderGmail = "gmail"
	ProviderIMAP  = "imap"
	ProviderEAS   = "eas"
)

// Account 对应于分片数据库中的 'accounts' 表。
// 每个账号对应一个 namespace，namespace ID 与账号 ID 相同。
// ID 的高 16 位是所在分片的 ID，由分片表的 AUTO_INCREMENT 起点保证。
type Account struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"-"`
	Email      string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"email_address"`
	Provider   string    `gorm:"type:varchar(64);not null" json:"provider"`
	SecretHash string    `gorm:"type:varchar(255);not null" json:"-"`
	SyncState  string    `gorm:"type:varchar(32);not null;default:'running'" json:"sync_state"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"-"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Account) TableName() string {
	return "accounts"
}

// NamespacePublicID 返回账号对应 namespace 的公开 ID。
func (a *Account) NamespacePublicID() string {
	return EncodePublicID(a.ID)
}
