package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"catalog/internal/domain/model"
	repo "catalog/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// 認証失敗の理由は外に出さない
const msgInvalidCredentials = "invalid email or password"

type JwtAccessToken struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenVersion int    `json:"token_version"`
}

type LoginOutput struct {
	User  UserView       `json:"user"`
	Token JwtAccessToken `json:"token"`
}

type ForceLogoutOutput struct {
	UserID          int64 `json:"user_id"`
	NewTokenVersion int   `json:"new_token_version"`
}

type AuthUsecase struct {
	users     repo.UserRepository
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func NewAuthUsecase(users repo.UserRepository, jwtSecret string, accessTTL time.Duration, logger *zap.Logger) *AuthUsecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthUsecase{
		users:     users,
		secret:    []byte(jwtSecret),
		accessTTL: accessTTL,
		now:       time.Now,
		logger:    logger,
	}
}

func (u *AuthUsecase) Login(ctx context.Context, email, password string) (*LoginOutput, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, validationError("email and password required")
	}

	//ユーザー取得
	user, err := u.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, storageError(err)
	}
	if user == nil {
		return nil, NewError(KindUnauthorized, msgInvalidCredentials)
	}

	//パスワード照合（bcrypt）
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, NewError(KindUnauthorized, msgInvalidCredentials)
	}

	token, expiresIn, err := u.issueAccessToken(user)
	if err != nil {
		return nil, WrapError(KindStorage, "issue token", err)
	}

	u.logger.Info("user logged in", zap.Int64("user_id", user.ID))
	return &LoginOutput{
		User: toUserView(user),
		Token: JwtAccessToken{
			AccessToken:  token,
			ExpiresIn:    expiresIn,
			TokenVersion: user.TokenVersion,
		},
	}, nil
}

// ログイン中のユーザー
func (u *AuthUsecase) Me(ctx context.Context, p model.Principal) (*UserView, error) {
	if p.UserID <= 0 {
		return nil, NewError(KindUnauthorized, "unauthorized")
	}

	user, err := u.users.FindByID(ctx, p.UserID)
	if err != nil {
		return nil, storageError(err)
	}
	if user == nil {
		return nil, NewError(KindUnauthorized, "unauthorized")
	}

	v := toUserView(user)
	return &v, nil
}

// token_versionを上げて発行済みのアクセストークンを全て無効にする
func (u *AuthUsecase) ForceLogout(ctx context.Context, targetUserID int64) (*ForceLogoutOutput, error) {
	if targetUserID <= 0 {
		return nil, validationError("invalid user id")
	}

	if err := u.users.IncrementTokenVersion(ctx, targetUserID); err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, notFoundError(msgUserNotFound)
		}
		return nil, storageError(err)
	}

	//更新後を取得してnew_token_versionを返す
	user, err := u.users.FindByID(ctx, targetUserID)
	if err != nil {
		return nil, storageError(err)
	}
	if user == nil {
		return nil, notFoundError(msgUserNotFound)
	}

	u.logger.Info("user force logged out", zap.Int64("user_id", user.ID), zap.Int("token_version", user.TokenVersion))
	return &ForceLogoutOutput{
		UserID:          user.ID,
		NewTokenVersion: user.TokenVersion,
	}, nil
}

// jwt発行
func (u *AuthUsecase) issueAccessToken(user *model.User) (string, int, error) {
	now := u.now()
	exp := now.Add(u.accessTTL)

	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": string(user.Role),
		"tv":   user.TokenVersion,
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := t.SignedString(u.secret)
	if err != nil {
		return "", 0, err
	}

	return signed, int(u.accessTTL.Seconds()), nil
}
