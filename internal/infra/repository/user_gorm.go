package repository

import (
	"catalog/internal/domain/model"
	domainrepo "catalog/internal/repository"
	"context"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type userGormRepository struct {
	db *gorm.DB
}

// DI
// main.goでこれをnewしてusecaseに注入します。
func NewUserGormRepository(db *gorm.DB) domainrepo.UserRepository {
	return &userGormRepository{db: db}
}

// Create はユーザーを新規作成
func (r *userGormRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return domainrepo.ErrDuplicateEmail
		}
		return errors.Wrap(err, "create user")
	}
	return nil
}

func (r *userGormRepository) List(ctx context.Context, f domainrepo.UserFilter) ([]model.User, error) {
	var users []model.User

	tx := r.db.WithContext(ctx).Model(&model.User{})
	if email := strings.TrimSpace(f.Email); email != "" {
		tx = tx.Where("email ILIKE ?", "%"+email+"%")
	}

	if err := tx.Order("id asc").Find(&users).Error; err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	return users, nil
}

// emailでユーザーを1件取得（大文字小文字は区別しない）
func (r *userGormRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User

	err := r.db.WithContext(ctx).
		Where("lower(email) = lower(?)", strings.TrimSpace(email)).
		First(&u).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "find user by email")
	}

	return &u, nil
}

// IDでユーザーを1件取得
func (r *userGormRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&u).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "find user %d", id)
	}

	return &u, nil
}

// ユーザーを更新。
func (r *userGormRepository) Update(ctx context.Context, user *model.User) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"name":          user.Name,
		"email":         user.Email,
		"password_hash": user.PasswordHash,
		"role":          user.Role,
	})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return domainrepo.ErrDuplicateEmail
		}
		return errors.Wrapf(res.Error, "update user %d", user.ID)
	}
	if res.RowsAffected == 0 {
		return domainrepo.ErrUserNotFound
	}
	return nil
}

// token_versionを+1 します。
func (r *userGormRepository) IncrementTokenVersion(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		UpdateColumn("token_version", gorm.Expr("token_version + ?", 1))

	if res.Error != nil {
		return errors.Wrapf(res.Error, "increment token version %d", id)
	}

	// 0件更新は「対象がない」
	if res.RowsAffected == 0 {
		return domainrepo.ErrUserNotFound
	}
	return nil
}

// ユーザーを論理削除。所有商品も同じトランザクションで論理削除する
// （外部キーのON DELETE CASCADEは物理削除でしか効かないため）
func (r *userGormRepository) SoftDelete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&model.User{}, id)
		if res.Error != nil {
			return errors.Wrapf(res.Error, "delete user %d", id)
		}
		if res.RowsAffected == 0 {
			return domainrepo.ErrUserNotFound
		}

		if err := tx.Where("owner_id = ?", id).Delete(&model.Product{}).Error; err != nil {
			return errors.Wrapf(err, "delete products of user %d", id)
		}
		return nil
	})
}
