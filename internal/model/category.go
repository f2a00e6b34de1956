package model

// 分类类型：Gmail 账号使用 label，其余账号使用 folder。
const (
	CategoryLabel  = "label"
	CategoryFolder = "folder"
)

// Category 对应于 'categories' 表。
// Name 是规范化名称（inbox、sent、drafts 等），自定义分类的 Name 为空，只有 DisplayName。
type Category struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	NamespaceID int64  `gorm:"not null;index"`
	Name        string `gorm:"type:varchar(191)"`
	DisplayName string `gorm:"type:varchar(191);not null"`
	Type        string `gorm:"type:varchar(16);not null"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Category) TableName() string {
	return "categories"
}
