package repository

import (
	"context"
	"errors"

	"catalog/internal/domain/model"
)

var (
	ErrNotFound = errors.New("not found")

	//ストレージの一意制約違反（削除されていない商品のSKU重複）
	ErrDuplicateSKU = errors.New("duplicate sku")

	//ownerのユーザーが存在しない（外部キー違反）
	ErrOwnerNotFound = errors.New("owner not found")
)

// 一覧検索の条件
type ProductFilter struct {
	//部分一致（大文字小文字を区別しない）
	Name string
	SKU  string

	//完全一致
	OwnerID  *int64
	Price    *float64
	Quantity *int64

	//ownerを読み込むか
	IncludeOwner bool

	//論理削除済みも含める（管理者の監査用一覧だけ）
	IncludeDeleted bool
}

// 商品の永続化だけを約束。権限の判断はしない。
type ProductRepository interface {
	//id昇順で返す
	Find(ctx context.Context, f ProductFilter) ([]model.Product, error)

	//無い・論理削除済みはErrNotFound
	FindByID(ctx context.Context, id int64, withOwner bool) (model.Product, error)

	//削除されていない商品にskuが存在するか（excludeIDは除く、0なら除外なし）
	ExistsActiveSKU(ctx context.Context, sku string, excludeID int64) (bool, error)

	//id・created_at・updated_atはストレージが採番する
	Insert(ctx context.Context, p model.Product) (model.Product, error)

	//updated_atを更新して保存
	Save(ctx context.Context, p model.Product) (model.Product, error)

	//deleted_atを立てる
	SoftDelete(ctx context.Context, p model.Product) error
}
