package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"catalog/internal/domain/model"
	"catalog/internal/infra/memory"
	repo "catalog/internal/repository"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =====================
// Mocks
// =====================

type AssetStoreMock struct{ mock.Mock }

func (m *AssetStoreMock) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, data, contentType)
	return args.String(0), args.Error(1)
}

func (m *AssetStoreMock) URL(ctx context.Context, ref string) (string, error) {
	args := m.Called(ctx, ref)
	return args.String(0), args.Error(1)
}

type ProductRepoMock struct{ mock.Mock }

func (m *ProductRepoMock) Find(ctx context.Context, f repo.ProductFilter) ([]model.Product, error) {
	args := m.Called(ctx, f)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Error(1)
}

func (m *ProductRepoMock) FindByID(ctx context.Context, id int64, withOwner bool) (model.Product, error) {
	args := m.Called(ctx, id, withOwner)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) ExistsActiveSKU(ctx context.Context, sku string, excludeID int64) (bool, error) {
	args := m.Called(ctx, sku, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *ProductRepoMock) Insert(ctx context.Context, p model.Product) (model.Product, error) {
	args := m.Called(ctx, p)
	out, _ := args.Get(0).(model.Product)
	return out, args.Error(1)
}

func (m *ProductRepoMock) Save(ctx context.Context, p model.Product) (model.Product, error) {
	args := m.Called(ctx, p)
	out, _ := args.Get(0).(model.Product)
	return out, args.Error(1)
}

func (m *ProductRepoMock) SoftDelete(ctx context.Context, p model.Product) error {
	panic("not used")
}

type AuditRepoMock struct{ mock.Mock }

func (m *AuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *AuditRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, filter)
	logs, _ := args.Get(0).([]model.AuditLog)
	return logs, args.Error(1)
}

// トランザクションを張らずにfnをそのまま呼ぶ
type TxManagerStub struct {
	products  repo.ProductRepository
	auditLogs repo.AuditLogRepository
}

func (m *TxManagerStub) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return fn(m)
}

func (m *TxManagerStub) Products() repo.ProductRepository   { return m.products }
func (m *TxManagerStub) Users() repo.UserRepository         { return nil }
func (m *TxManagerStub) AuditLogs() repo.AuditLogRepository { return m.auditLogs }

// =====================
// Fixtures
// =====================

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func seedUser(t *testing.T, s *memory.Store, email string, role model.Role) model.Principal {
	t.Helper()
	u := &model.User{Name: email, Email: email, PasswordHash: "x", Role: role}
	require.NoError(t, s.Users().Create(context.Background(), u))
	return model.Principal{UserID: u.ID, Role: role}
}

func ptr[T any](v T) *T { return &v }
