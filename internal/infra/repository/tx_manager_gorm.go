package repository

import (
	"context"

	repo "catalog/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	products  repo.ProductRepository
	users     repo.UserRepository
	auditLogs repo.AuditLogRepository
}

func (r *txReposGorm) Products() repo.ProductRepository   { return r.products }
func (r *txReposGorm) Users() repo.UserRepository         { return r.users }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository { return r.auditLogs }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

// fnがerrorを返すかpanicしたらrollback。ctxがキャンセルされた場合もドライバ側でrollbackされる
func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			products:  NewProductGormRepository(tx),
			users:     NewUserGormRepository(tx),
			auditLogs: NewAuditLogGormRepository(tx),
		}
		if err := fn(r); err != nil {
			return err
		}
		//commit前にキャンセルを確認する
		return ctx.Err()
	})
}
