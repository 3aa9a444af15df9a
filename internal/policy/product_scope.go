package policy

import (
	"strings"

	"catalog/internal/domain/model"
	"catalog/internal/repository"
)

// 一覧の種類
type ListScope int

const (
	//GET /products 認証済みなら誰でも。owner指定は無視し、ownerを付けて返す
	ScopeCatalog ListScope = iota
	//GET /products/seller 自分の商品だけ
	ScopeSeller
	//GET /products/admin 条件はそのまま、削除済みも指定できる
	ScopeAdmin
)

// リクエストから来た一覧条件（まだ信用しない）
type ProductQuery struct {
	Name           string
	SKU            string
	OwnerID        *int64
	Price          *float64
	Quantity       *int64
	IncludeOwner   bool
	IncludeDeleted bool
}

// 権限に合わせて絞り込み済みの条件。このパッケージでしか作れない。
type ScopedProductFilter struct {
	filter repository.ProductFilter
}

func (s ScopedProductFilter) Filter() repository.ProductFilter {
	return s.filter
}

// 一覧条件に権限の範囲を反映する。
// sellerが他人のownerIdを指定しても自分のidで上書きする（なりすまし防止）。
func ScopeProductQuery(p model.Principal, scope ListScope, q ProductQuery) (ScopedProductFilter, Decision) {
	f := repository.ProductFilter{
		Name:     strings.TrimSpace(q.Name),
		SKU:      strings.TrimSpace(q.SKU),
		Price:    q.Price,
		Quantity: q.Quantity,
	}

	switch scope {
	case ScopeAdmin:
		if d := CanListAll(p); !d.Allowed {
			return ScopedProductFilter{}, d
		}
		f.OwnerID = q.OwnerID
		f.IncludeOwner = q.IncludeOwner
		f.IncludeDeleted = q.IncludeDeleted

	case ScopeSeller:
		if d := CanListOwn(p); !d.Allowed {
			return ScopedProductFilter{}, d
		}
		owner := p.UserID
		f.OwnerID = &owner
		f.IncludeOwner = q.IncludeOwner

	default:
		if d := CanRead(p); !d.Allowed {
			return ScopedProductFilter{}, d
		}
		f.IncludeOwner = true
	}

	return ScopedProductFilter{filter: f}, Allow()
}
