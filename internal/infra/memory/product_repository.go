package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"catalog/internal/domain/model"
	repo "catalog/internal/repository"

	"gorm.io/gorm"
)

type ProductRepository struct {
	run func(fn func(st *state) error) error
	now func() time.Time
}

var _ repo.ProductRepository = (*ProductRepository)(nil)

func (r *ProductRepository) Find(ctx context.Context, f repo.ProductFilter) ([]model.Product, error) {
	var out []model.Product
	err := r.run(func(st *state) error {
		for _, p := range st.products {
			if !f.IncludeDeleted && p.IsDeleted() {
				continue
			}
			if !matches(p, f) {
				continue
			}
			if f.IncludeOwner {
				p.Owner = ownerOf(st, p.OwnerID)
			}
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id int64, withOwner bool) (model.Product, error) {
	var out model.Product
	err := r.run(func(st *state) error {
		p, ok := st.products[id]
		if !ok || p.IsDeleted() {
			return repo.ErrNotFound
		}
		if withOwner {
			p.Owner = ownerOf(st, p.OwnerID)
		}
		out = p
		return nil
	})
	return out, err
}

func (r *ProductRepository) ExistsActiveSKU(ctx context.Context, sku string, excludeID int64) (bool, error) {
	var exists bool
	err := r.run(func(st *state) error {
		exists = skuTaken(st, sku, excludeID)
		return nil
	})
	return exists, err
}

func (r *ProductRepository) Insert(ctx context.Context, p model.Product) (model.Product, error) {
	err := r.run(func(st *state) error {
		if _, ok := st.users[p.OwnerID]; !ok {
			return repo.ErrOwnerNotFound
		}
		if skuTaken(st, p.SKU, 0) {
			return repo.ErrDuplicateSKU
		}

		now := r.now()
		st.productSeq++
		p.ID = st.productSeq
		p.Owner = nil
		p.CreatedAt = now
		p.UpdatedAt = now
		p.DeletedAt = gorm.DeletedAt{}
		st.products[p.ID] = p
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

func (r *ProductRepository) Save(ctx context.Context, p model.Product) (model.Product, error) {
	var out model.Product
	err := r.run(func(st *state) error {
		cur, ok := st.products[p.ID]
		if !ok || cur.IsDeleted() {
			return repo.ErrNotFound
		}
		if skuTaken(st, p.SKU, p.ID) {
			return repo.ErrDuplicateSKU
		}

		//owner・作成日時は変えない
		p.OwnerID = cur.OwnerID
		p.CreatedAt = cur.CreatedAt
		p.DeletedAt = cur.DeletedAt
		p.Owner = nil
		p.UpdatedAt = r.now()
		st.products[p.ID] = p
		out = p
		return nil
	})
	return out, err
}

func (r *ProductRepository) SoftDelete(ctx context.Context, p model.Product) error {
	return r.run(func(st *state) error {
		cur, ok := st.products[p.ID]
		if !ok || cur.IsDeleted() {
			return repo.ErrNotFound
		}
		cur.DeletedAt = gorm.DeletedAt{Time: r.now(), Valid: true}
		st.products[p.ID] = cur
		return nil
	})
}

func matches(p model.Product, f repo.ProductFilter) bool {
	if f.Name != "" && !containsFold(p.Name, f.Name) {
		return false
	}
	if f.SKU != "" && !containsFold(p.SKU, f.SKU) {
		return false
	}
	if f.OwnerID != nil && p.OwnerID != *f.OwnerID {
		return false
	}
	if f.Price != nil && p.Price != *f.Price {
		return false
	}
	if f.Quantity != nil && p.Quantity != *f.Quantity {
		return false
	}
	return true
}

func skuTaken(st *state, sku string, excludeID int64) bool {
	for id, p := range st.products {
		if id == excludeID || p.IsDeleted() {
			continue
		}
		if strings.EqualFold(p.SKU, sku) {
			return true
		}
	}
	return false
}

// 削除済みユーザーは付けない（GORMのPreloadと同じ）
func ownerOf(st *state, id int64) *model.User {
	u, ok := st.users[id]
	if !ok || u.DeletedAt.Valid {
		return nil
	}
	return &u
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
