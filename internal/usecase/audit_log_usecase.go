package usecase

import (
	"context"

	"catalog/internal/domain/model"
	"catalog/internal/policy"
	repo "catalog/internal/repository"
)

// 監査ログの閲覧（管理者のみ）
type AuditLogUsecase struct {
	logs repo.AuditLogRepository
}

func NewAuditLogUsecase(logs repo.AuditLogRepository) *AuditLogUsecase {
	return &AuditLogUsecase{logs: logs}
}

func (u *AuditLogUsecase) List(ctx context.Context, p model.Principal, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	if d := policy.CanListAll(p); !d.Allowed {
		return nil, forbiddenError(d.Reason)
	}
	if f.CreatedFrom != nil && f.CreatedTo != nil && f.CreatedFrom.After(*f.CreatedTo) {
		return nil, validationError("created_from must not be after created_to")
	}

	f.Limit, f.Offset = repo.NormalizePage(f.Limit, f.Offset)

	logs, err := u.logs.List(ctx, f)
	if err != nil {
		return nil, storageError(err)
	}
	if logs == nil {
		logs = []model.AuditLog{}
	}
	return logs, nil
}
