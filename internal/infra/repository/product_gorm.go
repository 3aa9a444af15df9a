package repository

import (
	"context"
	"strings"
	"time"

	"catalog/internal/domain/model"
	repo "catalog/internal/repository"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type ProductGormRepository struct {
	db *gorm.DB
}

var _ repo.ProductRepository = (*ProductGormRepository)(nil)

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

// 条件で絞り込んでid昇順で返す
func (r *ProductGormRepository) Find(ctx context.Context, f repo.ProductFilter) ([]model.Product, error) {
	var products []model.Product

	tx := r.db.WithContext(ctx).Model(&model.Product{})

	//削除済みも含めるのは管理者の一覧だけ
	if f.IncludeDeleted {
		tx = tx.Unscoped()
	}

	if name := strings.TrimSpace(f.Name); name != "" {
		tx = tx.Where("name ILIKE ?", "%"+name+"%")
	}
	if sku := strings.TrimSpace(f.SKU); sku != "" {
		tx = tx.Where("sku ILIKE ?", "%"+sku+"%")
	}
	if f.OwnerID != nil {
		tx = tx.Where("owner_id = ?", *f.OwnerID)
	}
	if f.Price != nil {
		tx = tx.Where("price = ?", *f.Price)
	}
	if f.Quantity != nil {
		tx = tx.Where("quantity = ?", *f.Quantity)
	}
	if f.IncludeOwner {
		tx = tx.Preload("Owner")
	}

	if err := tx.Order("id asc").Find(&products).Error; err != nil {
		return nil, errors.Wrap(err, "find products")
	}
	return products, nil
}

// IDで商品を取得（論理削除済みは見えない）
func (r *ProductGormRepository) FindByID(ctx context.Context, id int64, withOwner bool) (model.Product, error) {
	var p model.Product

	tx := r.db.WithContext(ctx)
	if withOwner {
		tx = tx.Preload("Owner")
	}

	err := tx.First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, errors.Wrapf(err, "find product %d", id)
	}
	return p, nil
}

// 大文字小文字を無視した完全一致
func (r *ProductGormRepository) ExistsActiveSKU(ctx context.Context, sku string, excludeID int64) (bool, error) {
	var n int64

	tx := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("lower(sku) = lower(?)", strings.TrimSpace(sku))
	if excludeID > 0 {
		tx = tx.Where("id <> ?", excludeID)
	}

	if err := tx.Count(&n).Error; err != nil {
		return false, errors.Wrap(err, "count sku")
	}
	return n > 0, nil
}

// 商品の作成
func (r *ProductGormRepository) Insert(ctx context.Context, p model.Product) (model.Product, error) {
	p.Owner = nil
	if err := r.db.WithContext(ctx).Omit("Owner").Create(&p).Error; err != nil {
		if isUniqueViolation(err) {
			return model.Product{}, repo.ErrDuplicateSKU
		}
		if isForeignKeyViolation(err) {
			return model.Product{}, repo.ErrOwnerNotFound
		}
		return model.Product{}, errors.Wrap(err, "insert product")
	}
	return p, nil
}

// 商品の更新。owner_idは変えない
func (r *ProductGormRepository) Save(ctx context.Context, p model.Product) (model.Product, error) {
	res := r.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
		"name":       p.Name,
		"sku":        p.SKU,
		"quantity":   p.Quantity,
		"price":      p.Price,
		"asset_ref":  p.AssetRef,
		"updated_at": time.Now(),
	})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return model.Product{}, repo.ErrDuplicateSKU
		}
		return model.Product{}, errors.Wrapf(res.Error, "update product %d", p.ID)
	}
	if res.RowsAffected == 0 {
		return model.Product{}, repo.ErrNotFound
	}

	return r.FindByID(ctx, p.ID, false)
}

// 商品削除（deleted_atを立てる）
func (r *ProductGormRepository) SoftDelete(ctx context.Context, p model.Product) error {
	res := r.db.WithContext(ctx).Delete(&model.Product{}, p.ID)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "delete product %d", p.ID)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
