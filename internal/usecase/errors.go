package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// エラーの種類
type ErrorKind string

const (
	KindValidation   ErrorKind = "VALIDATION_FAILURE"
	KindUnauthorized ErrorKind = "UNAUTHORIZED"
	KindForbidden    ErrorKind = "FORBIDDEN"
	KindNotFound     ErrorKind = "NOT_FOUND"
	KindConflict     ErrorKind = "CONFLICT"
	KindUpstream     ErrorKind = "UPSTREAM_FAILURE"
	KindStorage      ErrorKind = "STORAGE_FAILURE"
)

type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// 同じKindならerrors.Isで一致させる
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Kindに対応するHTTPステータス
func (e *AppError) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errors.Is用
var (
	ErrValidation   = &AppError{Kind: KindValidation}
	ErrUnauthorized = &AppError{Kind: KindUnauthorized}
	ErrForbidden    = &AppError{Kind: KindForbidden}
	ErrNotFound     = &AppError{Kind: KindNotFound}
	ErrConflict     = &AppError{Kind: KindConflict}
	ErrUpstream     = &AppError{Kind: KindUpstream}
	ErrStorage      = &AppError{Kind: KindStorage}
)

func NewError(kind ErrorKind, message string) error {
	return &AppError{Kind: kind, Message: message}
}

func WrapError(kind ErrorKind, message string, err error) error {
	return &AppError{Kind: kind, Message: message, Err: err}
}

func AsAppError(err error) (*AppError, bool) {
	var ae *AppError
	ok := errors.As(err, &ae)
	return ae, ok
}

func validationError(msg string) error { return NewError(KindValidation, msg) }
func forbiddenError(msg string) error  { return NewError(KindForbidden, msg) }
func notFoundError(msg string) error   { return NewError(KindNotFound, msg) }
func conflictError(msg string) error   { return NewError(KindConflict, msg) }

// 既に分類済みならそのまま、それ以外はストレージ障害として包む
func storageError(err error) error {
	if _, ok := AsAppError(err); ok {
		return err
	}
	return WrapError(KindStorage, "db error", err)
}
