package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"catalog/internal/domain/model"
	"catalog/internal/policy"
	repo "catalog/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	msgSKUExists       = "sku already exists"
	msgProductNotFound = "product not found"

	//一覧でURLを並列に解決する数
	urlResolveConcurrency = 8
)

// 商品のライフサイクル（作成・取得・更新・削除）。
// プロセス内に共有の可変状態は持たないので並行に呼んでよい。
type ProductUsecase struct {
	products repo.ProductRepository
	txm      repo.TransactionManager
	assets   repo.AssetStore
	logger   *zap.Logger
}

// DI
func NewProductUsecase(
	products repo.ProductRepository,
	txm repo.TransactionManager,
	assets repo.AssetStore,
	logger *zap.Logger,
) *ProductUsecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductUsecase{
		products: products,
		txm:      txm,
		assets:   assets,
		logger:   logger,
	}
}

// アップロードする画像
type ImageUpload struct {
	Data        []byte
	ContentType string
}

// OwnerIDは呼び出し側でpolicy.BindOwnerを通して決めた値
type CreateProductInput struct {
	Name     string
	SKU      string
	Quantity int64
	Price    float64
	OwnerID  int64
	Image    *ImageUpload
}

// Setのフィールドだけ更新する
type UpdateProductInput struct {
	Name     model.Optional[string]
	SKU      model.Optional[string]
	Quantity model.Optional[int64]
	Price    model.Optional[float64]
	Image    *ImageUpload
}

func (u *ProductUsecase) Create(ctx context.Context, p model.Principal, in CreateProductInput) (ProductView, error) {
	if d := policy.CanCreate(p); !d.Allowed {
		return ProductView{}, forbiddenError(d.Reason)
	}

	name := strings.TrimSpace(in.Name)
	sku := strings.TrimSpace(in.SKU)
	if name == "" {
		return ProductView{}, validationError("name required")
	}
	if sku == "" {
		return ProductView{}, validationError("sku required")
	}
	if in.OwnerID <= 0 {
		return ProductView{}, validationError("owner required")
	}
	if err := checkImage(in.Image); err != nil {
		return ProductView{}, err
	}

	//アップロード前に分かる重複は先に弾く（無駄なアセットを作らない）
	if err := checkSKUAvailable(ctx, u.products, sku, 0); err != nil {
		return ProductView{}, err
	}

	//画像は行の保存より先。失敗したら何も書かずに終わる
	assetRef, err := u.upload(ctx, in.Image)
	if err != nil {
		return ProductView{}, err
	}

	var created model.Product
	err = u.txm.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := checkSKUAvailable(ctx, r.Products(), sku, 0); err != nil {
			return err
		}

		var err error
		created, err = r.Products().Insert(ctx, model.Product{
			Name:     name,
			SKU:      sku,
			Quantity: in.Quantity,
			Price:    in.Price,
			OwnerID:  in.OwnerID,
			AssetRef: assetRef,
		})
		if errors.Is(err, repo.ErrDuplicateSKU) {
			//同時作成の負け側。最終判定はストレージの一意制約
			return conflictError(msgSKUExists)
		}
		if errors.Is(err, repo.ErrOwnerNotFound) {
			return validationError("owner not found")
		}
		if err != nil {
			return err
		}

		return r.AuditLogs().Create(ctx, productAudit(p.UserID, model.AuditActionCreateProduct, created.ID, nil, &created))
	})
	if err != nil {
		u.logOrphanedAsset(assetRef, err)
		return ProductView{}, storageError(err)
	}

	u.logger.Info("product created",
		zap.Int64("product_id", created.ID),
		zap.String("sku", created.SKU),
		zap.Int64("owner_id", created.OwnerID),
		zap.Int64("actor_id", p.UserID),
	)

	return u.toView(ctx, created, false), nil
}

// 条件はpolicy.ScopeProductQueryで権限に合わせて絞り込み済み。ここでは再スコープしない
func (u *ProductUsecase) FindAll(ctx context.Context, f policy.ScopedProductFilter) ([]ProductView, error) {
	filter := f.Filter()

	items, err := u.products.Find(ctx, filter)
	if err != nil {
		return nil, storageError(err)
	}

	views := make([]ProductView, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(urlResolveConcurrency)
	for i := range items {
		g.Go(func() error {
			views[i] = u.toView(gctx, items[i], filter.IncludeDeleted)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, storageError(err)
	}

	return views, nil
}

// 無い・削除済みなら(nil, nil)。404にするのは呼び出し側
func (u *ProductUsecase) FindByID(ctx context.Context, p model.Principal, id int64) (*ProductView, error) {
	if d := policy.CanRead(p); !d.Allowed {
		return nil, forbiddenError(d.Reason)
	}
	if id <= 0 {
		return nil, validationError("invalid product id")
	}

	product, err := u.products.FindByID(ctx, id, true)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError(err)
	}

	v := u.toView(ctx, product, false)
	return &v, nil
}

func (u *ProductUsecase) Update(ctx context.Context, p model.Principal, id int64, in UpdateProductInput) (ProductView, error) {
	if d := policy.CanMutateAny(p); !d.Allowed {
		return ProductView{}, forbiddenError(d.Reason)
	}
	if id <= 0 {
		return ProductView{}, validationError("invalid product id")
	}
	if name, ok := in.Name.Get(); ok && strings.TrimSpace(name) == "" {
		return ProductView{}, validationError("name must not be empty")
	}
	if sku, ok := in.SKU.Get(); ok && strings.TrimSpace(sku) == "" {
		return ProductView{}, validationError("sku must not be empty")
	}
	if err := checkImage(in.Image); err != nil {
		return ProductView{}, err
	}

	//アップロード前に 存在・権限・SKU を確認する
	current, err := loadForMutation(ctx, u.products, p, id, false)
	if err != nil {
		return ProductView{}, err
	}
	if sku, ok := in.SKU.Get(); ok && strings.TrimSpace(sku) != current.SKU {
		if err := checkSKUAvailable(ctx, u.products, strings.TrimSpace(sku), id); err != nil {
			return ProductView{}, err
		}
	}

	//古い画像は消さない
	assetRef, err := u.upload(ctx, in.Image)
	if err != nil {
		return ProductView{}, err
	}

	var updated model.Product
	err = u.txm.WithinTx(ctx, func(r repo.TxRepos) error {
		//tx内で読み直す
		before, err := loadForMutation(ctx, r.Products(), p, id, false)
		if err != nil {
			return err
		}

		next := applyUpdate(before, in, assetRef)
		if next.SKU != before.SKU {
			if err := checkSKUAvailable(ctx, r.Products(), next.SKU, id); err != nil {
				return err
			}
		}

		updated, err = r.Products().Save(ctx, next)
		if errors.Is(err, repo.ErrDuplicateSKU) {
			return conflictError(msgSKUExists)
		}
		if errors.Is(err, repo.ErrNotFound) {
			return notFoundError(msgProductNotFound)
		}
		if err != nil {
			return err
		}

		return r.AuditLogs().Create(ctx, productAudit(p.UserID, model.AuditActionUpdateProduct, id, &before, &updated))
	})
	if err != nil {
		u.logOrphanedAsset(assetRef, err)
		return ProductView{}, storageError(err)
	}

	u.logger.Info("product updated",
		zap.Int64("product_id", updated.ID),
		zap.Int64("actor_id", p.UserID),
	)

	return u.toView(ctx, updated, false), nil
}

// 論理削除。2回目は既に見えないのでNOT_FOUND
func (u *ProductUsecase) Delete(ctx context.Context, p model.Principal, id int64) error {
	if d := policy.CanMutateAny(p); !d.Allowed {
		return forbiddenError(d.Reason)
	}
	if id <= 0 {
		return validationError("invalid product id")
	}

	err := u.txm.WithinTx(ctx, func(r repo.TxRepos) error {
		current, err := loadForMutation(ctx, r.Products(), p, id, true)
		if err != nil {
			return err
		}

		if err := r.Products().SoftDelete(ctx, current); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return notFoundError(msgProductNotFound)
			}
			return err
		}

		return r.AuditLogs().Create(ctx, productAudit(p.UserID, model.AuditActionDeleteProduct, id, &current, nil))
	})
	if err != nil {
		return storageError(err)
	}

	u.logger.Info("product deleted",
		zap.Int64("product_id", id),
		zap.Int64("actor_id", p.UserID),
	)
	return nil
}

// 存在確認と変更権限の確認
func loadForMutation(ctx context.Context, products repo.ProductRepository, p model.Principal, id int64, withOwner bool) (model.Product, error) {
	current, err := products.FindByID(ctx, id, withOwner)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, notFoundError(msgProductNotFound)
	}
	if err != nil {
		return model.Product{}, err
	}

	if d := policy.CanMutate(p, current.OwnerID); !d.Allowed {
		return model.Product{}, forbiddenError(d.Reason)
	}
	return current, nil
}

func checkSKUAvailable(ctx context.Context, products repo.ProductRepository, sku string, excludeID int64) error {
	exists, err := products.ExistsActiveSKU(ctx, sku, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return conflictError(msgSKUExists)
	}
	return nil
}

func checkImage(img *ImageUpload) error {
	if img != nil && len(img.Data) == 0 {
		return validationError("image is empty")
	}
	return nil
}

// 指定のあるフィールドだけ反映する。0や空でない文字列もそのまま適用
func applyUpdate(p model.Product, in UpdateProductInput, assetRef *string) model.Product {
	if v, ok := in.Name.Get(); ok {
		p.Name = strings.TrimSpace(v)
	}
	if v, ok := in.SKU.Get(); ok {
		p.SKU = strings.TrimSpace(v)
	}
	if v, ok := in.Quantity.Get(); ok {
		p.Quantity = v
	}
	if v, ok := in.Price.Get(); ok {
		p.Price = v
	}
	if assetRef != nil {
		p.AssetRef = assetRef
	}
	return p
}

func (u *ProductUsecase) upload(ctx context.Context, img *ImageUpload) (*string, error) {
	if img == nil {
		return nil, nil
	}
	if u.assets == nil {
		return nil, NewError(KindUpstream, "asset store not configured")
	}

	ref, err := u.assets.Upload(ctx, img.Data, img.ContentType)
	if err != nil {
		return nil, WrapError(KindUpstream, "image upload failed", err)
	}
	return &ref, nil
}

// アップロード済みで保存に失敗した画像は残る（後片付けは別途）
func (u *ProductUsecase) logOrphanedAsset(assetRef *string, err error) {
	if assetRef == nil {
		return
	}
	u.logger.Warn("uploaded asset is orphaned",
		zap.String("asset_ref", *assetRef),
		zap.Error(err),
	)
}

type productSnapshot struct {
	Name     string  `json:"name"`
	SKU      string  `json:"sku"`
	Quantity int64   `json:"quantity"`
	Price    float64 `json:"price"`
	OwnerID  int64   `json:"owner_id"`
	AssetRef *string `json:"asset_ref,omitempty"`
}

func productAudit(actorID int64, action model.AuditAction, productID int64, before, after *model.Product) model.AuditLog {
	return model.AuditLog{
		ActorUserID:  actorID,
		Action:       action,
		ResourceType: model.AuditResourceProduct,
		ResourceID:   productID,
		BeforeJSON:   snapshotJSON(before),
		AfterJSON:    snapshotJSON(after),
	}
}

func snapshotJSON(p *model.Product) string {
	if p == nil {
		return ""
	}
	b, err := json.Marshal(productSnapshot{
		Name:     p.Name,
		SKU:      p.SKU,
		Quantity: p.Quantity,
		Price:    p.Price,
		OwnerID:  p.OwnerID,
		AssetRef: p.AssetRef,
	})
	if err != nil {
		return ""
	}
	return string(b)
}
