package model

import "time"

// User 表示系统用户。
type User struct {
	ID        uint      `gorm:"primaryKey"`                            // 用户 ID
	Username  string    `gorm:"type:varchar(30);uniqueIndex;not null"` // 用户名（唯一）
	Email     string    `gorm:"type:varchar(80);uniqueIndex;not null"` // 邮箱（唯一）
	FirstName string    `gorm:"type:varchar(40)"`                      // 名，允许为空字符串
	LastName  string    `gorm:"type:varchar(40)"`                      // 姓，允许为空字符串
	Password  string    `gorm:"type:text"`                             // bcrypt 哈希，未设置时为空
	CreatedAt time.Time `gorm:"not null"`                              // 创建时间
	UpdatedAt time.Time `gorm:"not null"`                              // 更新时间
}
