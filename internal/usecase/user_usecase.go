package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"catalog/internal/domain/model"
	repo "catalog/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	msgEmailExists  = "email already exists"
	msgUserNotFound = "user not found"
)

// APIで返すユーザー（パスワードハッシュは出さない）
type UserView struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateUserInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// Setのフィールドだけ更新する
type UpdateUserInput struct {
	Name     model.Optional[string]
	Email    model.Optional[string]
	Password model.Optional[string]
	Role     model.Optional[model.Role]
}

type UserUsecase struct {
	users      repo.UserRepository
	txm        repo.TransactionManager
	bcryptCost int
	logger     *zap.Logger
}

func NewUserUsecase(users repo.UserRepository, txm repo.TransactionManager, bcryptCost int, logger *zap.Logger) *UserUsecase {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserUsecase{
		users:      users,
		txm:        txm,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// 会員登録。ロールは常にuser（変更は管理者がPATCHで行う）
func (u *UserUsecase) Create(ctx context.Context, in CreateUserInput) (UserView, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return UserView{}, validationError("email required")
	}
	if in.Password == "" {
		return UserView{}, validationError("password required")
	}
	if in.Password != in.ConfirmPassword {
		return UserView{}, validationError("password and confirmPassword do not match")
	}

	existing, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		return UserView{}, storageError(err)
	}
	if existing != nil {
		return UserView{}, conflictError(msgEmailExists)
	}

	//パスワードは必ずハッシュ化して保存（平文保存しない）
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), u.bcryptCost)
	if err != nil {
		return UserView{}, WrapError(KindStorage, "hash password", err)
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         model.RoleUser,
	}
	if err := u.users.Create(ctx, user); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return UserView{}, conflictError(msgEmailExists)
		}
		return UserView{}, storageError(err)
	}

	u.logger.Info("user created", zap.Int64("user_id", user.ID))
	return toUserView(user), nil
}

// emailは部分一致
func (u *UserUsecase) List(ctx context.Context, email string) ([]UserView, error) {
	users, err := u.users.List(ctx, repo.UserFilter{Email: strings.TrimSpace(email)})
	if err != nil {
		return nil, storageError(err)
	}

	views := make([]UserView, 0, len(users))
	for i := range users {
		views = append(views, toUserView(&users[i]))
	}
	return views, nil
}

// 無ければ(nil, nil)
func (u *UserUsecase) FindByID(ctx context.Context, id int64) (*UserView, error) {
	if id <= 0 {
		return nil, validationError("invalid user id")
	}

	user, err := u.users.FindByID(ctx, id)
	if err != nil {
		return nil, storageError(err)
	}
	if user == nil {
		return nil, nil
	}

	v := toUserView(user)
	return &v, nil
}

// ロールかパスワードが変わったら発行済みトークンを失効させる
func (u *UserUsecase) Update(ctx context.Context, actor model.Principal, id int64, in UpdateUserInput) (UserView, error) {
	if id <= 0 {
		return UserView{}, validationError("invalid user id")
	}
	if v, ok := in.Email.Get(); ok && strings.TrimSpace(v) == "" {
		return UserView{}, validationError("email must not be empty")
	}
	if v, ok := in.Name.Get(); ok && strings.TrimSpace(v) == "" {
		return UserView{}, validationError("name must not be empty")
	}
	if v, ok := in.Password.Get(); ok && v == "" {
		return UserView{}, validationError("password must not be empty")
	}
	if v, ok := in.Role.Get(); ok && !v.Valid() {
		return UserView{}, validationError("invalid role")
	}

	//bcryptは重いのでtxの外で
	var newHash string
	if pw, ok := in.Password.Get(); ok {
		h, err := bcrypt.GenerateFromPassword([]byte(pw), u.bcryptCost)
		if err != nil {
			return UserView{}, WrapError(KindStorage, "hash password", err)
		}
		newHash = string(h)
	}

	var updated model.User
	err := u.txm.WithinTx(ctx, func(r repo.TxRepos) error {
		current, err := r.Users().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return notFoundError(msgUserNotFound)
		}
		before := *current
		next := *current

		if v, ok := in.Name.Get(); ok {
			next.Name = strings.TrimSpace(v)
		}
		if v, ok := in.Email.Get(); ok {
			email := strings.TrimSpace(v)
			if !strings.EqualFold(email, current.Email) {
				other, err := r.Users().FindByEmail(ctx, email)
				if err != nil {
					return err
				}
				if other != nil && other.ID != id {
					return conflictError(msgEmailExists)
				}
			}
			next.Email = email
		}
		if newHash != "" {
			next.PasswordHash = newHash
		}
		if v, ok := in.Role.Get(); ok {
			next.Role = v
		}

		if err := r.Users().Update(ctx, &next); err != nil {
			if errors.Is(err, repo.ErrDuplicateEmail) {
				return conflictError(msgEmailExists)
			}
			if errors.Is(err, repo.ErrUserNotFound) {
				return notFoundError(msgUserNotFound)
			}
			return err
		}

		if next.Role != before.Role || newHash != "" {
			if err := r.Users().IncrementTokenVersion(ctx, id); err != nil {
				return err
			}
			next.TokenVersion++
		}

		updated = next
		return r.AuditLogs().Create(ctx, userAudit(actor.UserID, model.AuditActionUpdateUser, id, &before, &updated))
	})
	if err != nil {
		return UserView{}, storageError(err)
	}

	u.logger.Info("user updated", zap.Int64("user_id", id), zap.Int64("actor_id", actor.UserID))
	return toUserView(&updated), nil
}

// 論理削除。所有している商品も同じtxで論理削除される
func (u *UserUsecase) Delete(ctx context.Context, actor model.Principal, id int64) error {
	if id <= 0 {
		return validationError("invalid user id")
	}

	err := u.txm.WithinTx(ctx, func(r repo.TxRepos) error {
		current, err := r.Users().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return notFoundError(msgUserNotFound)
		}

		if err := r.Users().SoftDelete(ctx, id); err != nil {
			if errors.Is(err, repo.ErrUserNotFound) {
				return notFoundError(msgUserNotFound)
			}
			return err
		}

		return r.AuditLogs().Create(ctx, userAudit(actor.UserID, model.AuditActionDeleteUser, id, current, nil))
	})
	if err != nil {
		return storageError(err)
	}

	u.logger.Info("user deleted", zap.Int64("user_id", id), zap.Int64("actor_id", actor.UserID))
	return nil
}

func toUserView(user *model.User) UserView {
	return UserView{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

type userSnapshot struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	TokenVersion int    `json:"token_version"`
}

func userAudit(actorID int64, action model.AuditAction, userID int64, before, after *model.User) model.AuditLog {
	return model.AuditLog{
		ActorUserID:  actorID,
		Action:       action,
		ResourceType: model.AuditResourceUser,
		ResourceID:   userID,
		BeforeJSON:   userSnapshotJSON(before),
		AfterJSON:    userSnapshotJSON(after),
	}
}

func userSnapshotJSON(user *model.User) string {
	if user == nil {
		return ""
	}
	b, err := json.Marshal(userSnapshot{
		Name:         user.Name,
		Email:        user.Email,
		Role:         string(user.Role),
		TokenVersion: user.TokenVersion,
	})
	if err != nil {
		return ""
	}
	return string(b)
}
