package repository

import (
	"catalog/internal/domain/model"
	"context"
	"errors"
)

// ユーザーが見つかりませんを統一
var ErrUserNotFound = errors.New("user not found")

// メール重複
var ErrDuplicateEmail = errors.New("duplicate email")

type UserFilter struct {
	//部分一致
	Email string
}

// 保存・取得を約束
type UserRepository interface {
	//新規ユーザー作成
	Create(ctx context.Context, user *model.User) error
	//一覧（id昇順）
	List(ctx context.Context, f UserFilter) ([]model.User, error)
	// IDからユーザーを1件取得する。無ければ(nil, nil)
	FindByID(ctx context.Context, id int64) (*model.User, error)
	//メールからユーザーを一件取得する。無ければ(nil, nil)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// ユーザー情報の更新
	Update(ctx context.Context, user *model.User) error
	//トークンのバージョンを＋１
	IncrementTokenVersion(ctx context.Context, id int64) error
	//論理削除。所有している商品も一緒に論理削除する
	SoftDelete(ctx context.Context, id int64) error
}
