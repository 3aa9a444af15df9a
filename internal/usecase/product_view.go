package usecase

import (
	"context"
	"time"

	"catalog/internal/domain/model"

	"go.uber.org/zap"
)

// 商品レスポンスに埋め込むowner
type OwnerSummary struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// 商品のレスポンス。
// deleted_at は管理者の削除済み込み一覧でだけ出す。
type ProductView struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	SKU       string        `json:"sku"`
	Quantity  int64         `json:"quantity"`
	Price     float64       `json:"price"`
	OwnerID   int64         `json:"owner_id"`
	User      *OwnerSummary `json:"user,omitempty"`
	Image     *string       `json:"image,omitempty"`
	ImageURL  string        `json:"image_url,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	DeletedAt *time.Time    `json:"deleted_at,omitempty"`
}

func (u *ProductUsecase) toView(ctx context.Context, p model.Product, withDeleted bool) ProductView {
	v := ProductView{
		ID:        p.ID,
		Name:      p.Name,
		SKU:       p.SKU,
		Quantity:  p.Quantity,
		Price:     p.Price,
		OwnerID:   p.OwnerID,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}

	if p.Owner != nil {
		v.User = toOwnerSummary(p.Owner)
	}

	if p.HasAsset() {
		ref := *p.AssetRef
		v.Image = &ref
		v.ImageURL = u.resolveURL(ctx, p)
	}

	if withDeleted && p.DeletedAt.Valid {
		t := p.DeletedAt.Time
		v.DeletedAt = &t
	}

	return v
}

func toOwnerSummary(user *model.User) *OwnerSummary {
	return &OwnerSummary{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// URL解決は失敗しても読み取りは失敗させない。URLを省いて返す
func (u *ProductUsecase) resolveURL(ctx context.Context, p model.Product) string {
	if u.assets == nil {
		return ""
	}

	url, err := u.assets.URL(ctx, *p.AssetRef)
	if err != nil {
		u.logger.Warn("resolve asset url failed",
			zap.Int64("product_id", p.ID),
			zap.String("asset_ref", *p.AssetRef),
			zap.Error(err),
		)
		return ""
	}
	return url
}
