package model

import (
	"time"

	"gorm.io/gorm"
)

// 商品。SKUは削除されていない商品の中で一意（大文字小文字は区別しない）。
type Product struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`
	SKU       string         `gorm:"column:sku;type:varchar(100);not null" json:"sku"`
	Quantity  int64          `gorm:"not null" json:"quantity"`
	Price     float64        `gorm:"not null" json:"price"`
	OwnerID   int64          `gorm:"column:owner_id;not null;index" json:"owner_id"`
	Owner     *User          `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
	AssetRef  *string        `gorm:"column:asset_ref;type:varchar(512)" json:"asset_ref,omitempty"`
	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// 論理削除済みかどうか
func (p Product) IsDeleted() bool {
	return p.DeletedAt.Valid
}

// 画像が紐づいているか
func (p Product) HasAsset() bool {
	return p.AssetRef != nil && *p.AssetRef != ""
}
