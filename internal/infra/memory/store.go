// Package memory はプロセス内ストレージ。STORAGE_DRIVER=memory とテストで使う。
// トランザクションはストア全体のロックで直列化し、開始時の複製に書いてcommit時に差し替える。
package memory

import (
	"context"
	"sync"
	"time"

	"catalog/internal/domain/model"
	repo "catalog/internal/repository"
)

type state struct {
	products  map[int64]model.Product
	users     map[int64]model.User
	auditLogs []model.AuditLog

	productSeq int64
	userSeq    int64
	auditSeq   int64
}

func newState() *state {
	return &state{
		products: map[int64]model.Product{},
		users:    map[int64]model.User{},
	}
}

func (s *state) clone() *state {
	c := &state{
		products:   make(map[int64]model.Product, len(s.products)),
		users:      make(map[int64]model.User, len(s.users)),
		auditLogs:  append([]model.AuditLog(nil), s.auditLogs...),
		productSeq: s.productSeq,
		userSeq:    s.userSeq,
		auditSeq:   s.auditSeq,
	}
	for id, p := range s.products {
		c.products[id] = p
	}
	for id, u := range s.users {
		c.users[id] = u
	}
	return c
}

type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

type Option func(*Store)

// 時刻の取得元を差し替える（テスト用）
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		st:  newState(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) locked(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

// トランザクション外で使うリポジトリ（1操作ごとにロック）
func (s *Store) Products() *ProductRepository {
	return &ProductRepository{run: s.locked, now: s.now}
}

func (s *Store) Users() *UserRepository {
	return &UserRepository{run: s.locked, now: s.now}
}

func (s *Store) AuditLogs() *AuditLogRepository {
	return &AuditLogRepository{run: s.locked, now: s.now}
}

type txRepos struct {
	products  *ProductRepository
	users     *UserRepository
	auditLogs *AuditLogRepository
}

func (r *txRepos) Products() repo.ProductRepository   { return r.products }
func (r *txRepos) Users() repo.UserRepository         { return r.users }
func (r *txRepos) AuditLogs() repo.AuditLogRepository { return r.auditLogs }

type TxManager struct {
	store *Store
}

func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// fnの中ではtxReposだけを使うこと（Store直下のリポジトリを呼ぶとデッドロックする）
func (tm *TxManager) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	s := tm.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.st.clone()
	run := func(f func(st *state) error) error {
		return f(work)
	}
	r := &txRepos{
		products:  &ProductRepository{run: run, now: s.now},
		users:     &UserRepository{run: run, now: s.now},
		auditLogs: &AuditLogRepository{run: run, now: s.now},
	}

	if err := fn(r); err != nil {
		return err
	}

	//キャンセルされていたらcommitしない
	if err := ctx.Err(); err != nil {
		return err
	}

	s.st = work
	return nil
}
