package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"todoapi/internal/model"
)

// Models 返回需要建表的全部模型。
func Models() []any {
	return []any{&model.Task{}, &model.User{}}
}

// Migrate 创建或更新表结构。
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Reset 删除并重建全部表，数据会丢失。
func Reset(ctx context.Context, db *gorm.DB) error {
	m := db.WithContext(ctx).Migrator()
	if err := m.DropTable(Models()...); err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}
	if err := m.CreateTable(Models()...); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}
