package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"catalog/internal/domain/model"
	repo "catalog/internal/repository"

	"gorm.io/gorm"
)

type UserRepository struct {
	run func(fn func(st *state) error) error
	now func() time.Time
}

var _ repo.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.run(func(st *state) error {
		if emailTaken(st, user.Email, 0) {
			return repo.ErrDuplicateEmail
		}
		now := r.now()
		st.userSeq++
		user.ID = st.userSeq
		user.CreatedAt = now
		user.UpdatedAt = now
		if user.Role == "" {
			user.Role = model.RoleUser
		}
		st.users[user.ID] = *user
		return nil
	})
}

func (r *UserRepository) List(ctx context.Context, f repo.UserFilter) ([]model.User, error) {
	var out []model.User
	err := r.run(func(st *state) error {
		for _, u := range st.users {
			if u.DeletedAt.Valid {
				continue
			}
			if f.Email != "" && !containsFold(u.Email, f.Email) {
				continue
			}
			out = append(out, u)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	var out *model.User
	err := r.run(func(st *state) error {
		if u, ok := st.users[id]; ok && !u.DeletedAt.Valid {
			out = &u
		}
		return nil
	})
	return out, err
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var out *model.User
	err := r.run(func(st *state) error {
		for _, u := range st.users {
			if !u.DeletedAt.Valid && strings.EqualFold(u.Email, email) {
				out = &u
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	return r.run(func(st *state) error {
		cur, ok := st.users[user.ID]
		if !ok || cur.DeletedAt.Valid {
			return repo.ErrUserNotFound
		}
		if emailTaken(st, user.Email, user.ID) {
			return repo.ErrDuplicateEmail
		}
		user.CreatedAt = cur.CreatedAt
		user.UpdatedAt = r.now()
		st.users[user.ID] = *user
		return nil
	})
}

func (r *UserRepository) IncrementTokenVersion(ctx context.Context, id int64) error {
	return r.run(func(st *state) error {
		u, ok := st.users[id]
		if !ok || u.DeletedAt.Valid {
			return repo.ErrUserNotFound
		}
		u.TokenVersion++
		st.users[id] = u
		return nil
	})
}

// ユーザーと所有商品をまとめて論理削除
func (r *UserRepository) SoftDelete(ctx context.Context, id int64) error {
	return r.run(func(st *state) error {
		u, ok := st.users[id]
		if !ok || u.DeletedAt.Valid {
			return repo.ErrUserNotFound
		}
		deleted := gorm.DeletedAt{Time: r.now(), Valid: true}
		u.DeletedAt = deleted
		st.users[id] = u

		for pid, p := range st.products {
			if p.OwnerID == id && !p.IsDeleted() {
				p.DeletedAt = deleted
				st.products[pid] = p
			}
		}
		return nil
	})
}

func emailTaken(st *state, email string, excludeID int64) bool {
	for id, u := range st.users {
		if id == excludeID || u.DeletedAt.Valid {
			continue
		}
		if strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}
