package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"catalog/internal/domain/model"
	"catalog/internal/infra/db"
	repo "catalog/internal/repository"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TEST_DATABASE_DSN が無ければスキップ（実DBが必要）
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN is not set")
	}

	gormDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Discard,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gormDB) })

	require.NoError(t, db.Migrate(gormDB))
	require.NoError(t, gormDB.Exec("TRUNCATE audit_logs, products, users RESTART IDENTITY CASCADE").Error)

	return gormDB
}

func createTestUser(t *testing.T, gormDB *gorm.DB, email string) *model.User {
	t.Helper()
	u := &model.User{Name: email, Email: email, PasswordHash: "x", Role: model.RoleSeller}
	require.NoError(t, NewUserGormRepository(gormDB).Create(context.Background(), u))
	return u
}

func insertTestProduct(t *testing.T, products *ProductGormRepository, ownerID int64, name, sku string) model.Product {
	t.Helper()
	p, err := products.Insert(context.Background(), model.Product{
		Name: name, SKU: sku, Quantity: 1, Price: 10, OwnerID: ownerID,
	})
	require.NoError(t, err)
	return p
}

func TestProductGorm_ConcurrentInsertSameSKU(t *testing.T) {
	gormDB := openTestDB(t)
	owner := createTestUser(t, gormDB, "seller@example.com")
	txm := NewTxManagerGorm(gormDB)

	const n = 2
	start := make(chan struct{})
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			//大文字小文字違いも同じSKU
			sku := "RACE-1"
			if i%2 == 1 {
				sku = "race-1"
			}
			errs[i] = txm.WithinTx(context.Background(), func(r repo.TxRepos) error {
				_, err := r.Products().Insert(context.Background(), model.Product{
					Name: fmt.Sprintf("racer %d", i), SKU: sku, Quantity: 1, Price: 1, OwnerID: owner.ID,
				})
				return err
			})
		}(i)
	}
	close(start)
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, repo.ErrDuplicateSKU):
			dup++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, dup)
}

func TestProductGorm_SoftDeletedSKUCanBeReused(t *testing.T) {
	gormDB := openTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, gormDB, "seller@example.com")
	products := NewProductGormRepository(gormDB)

	first := insertTestProduct(t, products, owner.ID, "Lamp", "LMP-1")

	exists, err := products.ExistsActiveSKU(ctx, "lmp-1", 0)
	require.NoError(t, err)
	assert.True(t, exists)

	//自分自身は除外できる
	exists, err = products.ExistsActiveSKU(ctx, "LMP-1", first.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, products.SoftDelete(ctx, first))

	exists, err = products.ExistsActiveSKU(ctx, "LMP-1", 0)
	require.NoError(t, err)
	assert.False(t, exists)

	second := insertTestProduct(t, products, owner.ID, "Lamp v2", "lmp-1")
	assert.NotEqual(t, first.ID, second.ID)

	active, err := products.Find(ctx, repo.ProductFilter{SKU: "LMP"})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)

	all, err := products.Find(ctx, repo.ProductFilter{SKU: "LMP", IncludeDeleted: true})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)
	assert.True(t, all[0].DeletedAt.Valid)
}

func TestProductGorm_DeletedRowIsNotFound(t *testing.T) {
	gormDB := openTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, gormDB, "seller@example.com")
	products := NewProductGormRepository(gormDB)

	p := insertTestProduct(t, products, owner.ID, "Mug", "MUG-1")
	require.NoError(t, products.SoftDelete(ctx, p))

	_, err := products.FindByID(ctx, p.ID, false)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	p.Quantity = 0
	_, err = products.Save(ctx, p)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	//2回目の削除も見つからない
	assert.ErrorIs(t, products.SoftDelete(ctx, p), repo.ErrNotFound)
}

func TestProductGorm_SaveDuplicateAndUnknownOwner(t *testing.T) {
	gormDB := openTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, gormDB, "seller@example.com")
	products := NewProductGormRepository(gormDB)

	insertTestProduct(t, products, owner.ID, "A", "A-1")
	b := insertTestProduct(t, products, owner.ID, "B", "B-1")

	b.SKU = "a-1"
	_, err := products.Save(ctx, b)
	assert.ErrorIs(t, err, repo.ErrDuplicateSKU)

	_, err = products.Insert(ctx, model.Product{Name: "C", SKU: "C-1", OwnerID: 9999})
	assert.ErrorIs(t, err, repo.ErrOwnerNotFound)
}

func TestProductGorm_FindFiltersAndOwner(t *testing.T) {
	gormDB := openTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, gormDB, "alice@example.com")
	bob := createTestUser(t, gormDB, "bob@example.com")
	products := NewProductGormRepository(gormDB)

	insertTestProduct(t, products, alice.ID, "Desk Lamp", "LMP-1")
	insertTestProduct(t, products, bob.ID, "Floor Lamp", "LMP-2")
	insertTestProduct(t, products, bob.ID, "Chair", "CHR-1")

	got, err := products.Find(ctx, repo.ProductFilter{Name: "LAMP", OwnerID: &bob.ID, IncludeOwner: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "LMP-2", got[0].SKU)
	require.NotNil(t, got[0].Owner)
	assert.Equal(t, "bob@example.com", got[0].Owner.Email)

	got, err = products.Find(ctx, repo.ProductFilter{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Nil(t, got[0].Owner)
	assert.Less(t, got[0].ID, got[1].ID)
}

func TestUserGorm_SoftDeleteCascadesInsideTx(t *testing.T) {
	gormDB := openTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, gormDB, "seller@example.com")
	keep := createTestUser(t, gormDB, "keep@example.com")
	products := NewProductGormRepository(gormDB)

	mine := insertTestProduct(t, products, owner.ID, "Mine", "M-1")
	theirs := insertTestProduct(t, products, keep.ID, "Theirs", "T-1")

	//TxManagerの中で呼ぶとSoftDeleteのTransactionはsavepointになる
	err := NewTxManagerGorm(gormDB).WithinTx(ctx, func(r repo.TxRepos) error {
		return r.Users().SoftDelete(ctx, owner.ID)
	})
	require.NoError(t, err)

	u, err := NewUserGormRepository(gormDB).FindByID(ctx, owner.ID)
	require.NoError(t, err)
	assert.Nil(t, u)

	_, err = products.FindByID(ctx, mine.ID, false)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	_, err = products.FindByID(ctx, theirs.ID, false)
	assert.NoError(t, err)

	//削除済みユーザーのSKUも再利用できる
	insertTestProduct(t, products, keep.ID, "Mine again", "M-1")

	err = NewUserGormRepository(gormDB).SoftDelete(ctx, owner.ID)
	assert.ErrorIs(t, err, repo.ErrUserNotFound)
}
