package memory

import (
	"context"
	"time"

	"catalog/internal/domain/model"
	repo "catalog/internal/repository"
)

type AuditLogRepository struct {
	run func(fn func(st *state) error) error
	now func() time.Time
}

var _ repo.AuditLogRepository = (*AuditLogRepository)(nil)

func (r *AuditLogRepository) Create(ctx context.Context, log model.AuditLog) error {
	return r.run(func(st *state) error {
		st.auditSeq++
		log.ID = st.auditSeq
		if log.CreatedAt.IsZero() {
			log.CreatedAt = r.now()
		}
		st.auditLogs = append(st.auditLogs, log)
		return nil
	})
}

func (r *AuditLogRepository) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	var out []model.AuditLog
	err := r.run(func(st *state) error {
		//新しい順
		for i := len(st.auditLogs) - 1; i >= 0; i-- {
			l := st.auditLogs[i]
			if filter.ActorUserID != nil && l.ActorUserID != *filter.ActorUserID {
				continue
			}
			if filter.Action != nil && l.Action != *filter.Action {
				continue
			}
			if filter.ResourceType != nil && l.ResourceType != *filter.ResourceType {
				continue
			}
			if filter.ResourceID != nil && l.ResourceID != *filter.ResourceID {
				continue
			}
			if filter.CreatedFrom != nil && l.CreatedAt.Before(*filter.CreatedFrom) {
				continue
			}
			if filter.CreatedTo != nil && l.CreatedAt.After(*filter.CreatedTo) {
				continue
			}
			out = append(out, l)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	limit, offset := repo.NormalizePage(filter.Limit, filter.Offset)
	if offset >= len(out) {
		return []model.AuditLog{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
