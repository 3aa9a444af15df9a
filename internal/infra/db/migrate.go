package db

import (
	"catalog/internal/domain/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// 論理削除された行は一意性の対象外にするため部分インデックスで張る
var partialIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_products_sku_active ON products (lower(sku)) WHERE deleted_at IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_users_email_active ON users (lower(email)) WHERE deleted_at IS NULL`,
}

func Migrate(gormDB *gorm.DB) error {
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.AuditLog{},
	); err != nil {
		return errors.Wrap(err, "auto migrate")
	}

	for _, stmt := range partialIndexes {
		if err := gormDB.Exec(stmt).Error; err != nil {
			return errors.Wrap(err, "create index")
		}
	}
	return nil
}
