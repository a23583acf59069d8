package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"marketplace/internal/domain/model"
	"marketplace/internal/infra/db"
	gormrepo "marketplace/internal/infra/repository"
	repo "marketplace/internal/repository"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type gormRepositorySuite struct {
	suite.Suite

	container *postgres.PostgresContainer
	db        *gorm.DB
}

func TestGormRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	suite.Run(t, new(gormRepositorySuite))
}

func (s *gormRepositorySuite) SetupSuite() {
	ctx := context.Background()

	c, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("marketplace"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = c

	dsn, err := c.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.db, err = gorm.Open(gormpg.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	s.Require().NoError(err)
	s.Require().NoError(db.Migrate(s.db))
}

func (s *gormRepositorySuite) TearDownSuite() {
	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if s.container != nil {
		s.NoError(s.container.Terminate(context.Background()))
	}
}

// テストごとに全テーブルを空にする
func (s *gormRepositorySuite) SetupTest() {
	s.Require().NoError(s.db.Exec(`TRUNCATE users, refresh_tokens, addresses, taxons, products, product_sizes,
		product_colors, product_tags, inventory_adjustments, carts, cart_items, wishlist_items,
		order_counters, orders, order_items, audit_logs RESTART IDENTITY CASCADE`).Error)
}

func (s *gormRepositorySuite) seedProduct(stock int64) model.Product {
	p, err := gormrepo.NewProductGormRepository(s.db).Create(context.Background(), model.Product{
		SellerID: 1,
		Name:     gofakeit.ProductName(),
		Price:    100,
		Stock:    stock,
		IsActive: true,
	}, repo.ProductTaxons{})
	s.Require().NoError(err)
	return p
}

func (s *gormRepositorySuite) TestCart_GetOrCreateIsSingle() {
	t := s.T()
	ctx := context.Background()
	carts := gormrepo.NewCartGormRepository(s.db)
	owner := model.GuestOwner(gofakeit.UUID())

	var wg sync.WaitGroup
	ids := make([]int64, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := carts.GetOrCreate(ctx, owner)
			if s.NoError(err) {
				ids[i] = c.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		require.Equal(t, ids[0], id)
	}

	var count int64
	require.NoError(t, s.db.Model(&model.Cart{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func (s *gormRepositorySuite) TestCart_UpsertAndTotals() {
	t := s.T()
	ctx := context.Background()
	carts := gormrepo.NewCartGormRepository(s.db)
	items := gormrepo.NewCartItemGormRepository(s.db)
	p := s.seedProduct(10)

	cart, err := carts.GetOrCreate(ctx, model.UserOwner(7))
	require.NoError(t, err)

	line := model.CartItem{CartID: cart.ID, ProductID: p.ID, Quantity: 2, UnitPriceSnapshot: 100}
	require.NoError(t, items.Upsert(ctx, line))
	line.Quantity = 3
	line.UnitPriceSnapshot = 150
	require.NoError(t, items.Upsert(ctx, line))

	list, err := items.ListByCartID(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, int64(5), list[0].Quantity)
	require.Equal(t, int64(100), list[0].UnitPriceSnapshot)

	cart, err = carts.RecalculateTotals(ctx, cart.ID)
	require.NoError(t, err)
	require.Equal(t, int64(5), cart.TotalItems)
	require.Equal(t, int64(500), cart.TotalPrice)

	require.NoError(t, carts.Clear(ctx, cart.ID))
	cart, err = carts.FindByOwner(ctx, model.UserOwner(7))
	require.NoError(t, err)
	require.Zero(t, cart.TotalItems)

	require.NoError(t, carts.Delete(ctx, cart.ID))
	_, err = carts.FindByOwner(ctx, model.UserOwner(7))
	require.ErrorIs(t, err, repo.ErrNotFound)
}

func (s *gormRepositorySuite) TestOrderCounter_SeedsFromExistingOrders() {
	t := s.T()
	ctx := context.Background()
	day := "20260305"
	orders := gormrepo.NewOrderGormRepository(s.db)

	for i := int64(1); i <= 3; i++ {
		o := model.Order{
			OrderNumber:   fmt.Sprintf("ORD-%s-%04d", day, i),
			CustomerID:    1,
			PaymentMethod: model.PaymentMethodCOD,
			PaymentStatus: model.PaymentStatusPending,
			Status:        model.OrderStatusPending,
		}
		require.NoError(t, orders.Create(ctx, &o))
	}

	var wg sync.WaitGroup
	seqs := make([]int64, 2)
	for i := range seqs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := gormrepo.NewTxManagerGorm(s.db).WithinTx(ctx, func(r repo.TxRepos) error {
				seq, err := r.OrderCounters().Next(ctx, day)
				seqs[i] = seq
				return err
			})
			s.NoError(err)
		}(i)
	}
	wg.Wait()

	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	require.Equal(t, []int64{4, 5}, seqs)
}

func (s *gormRepositorySuite) TestOrder_DuplicateNumber() {
	t := s.T()
	ctx := context.Background()
	orders := gormrepo.NewOrderGormRepository(s.db)

	o1 := model.Order{OrderNumber: "ORD-20260305-0001", CustomerID: 1, PaymentMethod: model.PaymentMethodCOD, PaymentStatus: model.PaymentStatusPending, Status: model.OrderStatusPending}
	require.NoError(t, orders.Create(ctx, &o1))

	o2 := o1
	o2.ID = 0
	require.ErrorIs(t, orders.Create(ctx, &o2), repo.ErrOrderNumberTaken)

	// 状態が変わっていたら更新しない
	require.NoError(t, orders.UpdateStatus(ctx, o1.ID, model.OrderStatusPending, model.OrderStatusConfirmed, ""))
	require.ErrorIs(t, orders.UpdateStatus(ctx, o1.ID, model.OrderStatusPending, model.OrderStatusCancelled, ""), repo.ErrNotFound)
}

func (s *gormRepositorySuite) TestInventory_ConditionalDecrease() {
	t := s.T()
	ctx := context.Background()
	inv := gormrepo.NewInventoryGormRepository(s.db)
	p := s.seedProduct(3)

	ok, err := inv.DecreaseStockIfEnough(ctx, p.ID, 2)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = inv.DecreaseStockIfEnough(ctx, p.ID, 2)
	require.NoError(t, err)
	require.False(t, ok)

	before, err := inv.SetStockWithAdjustment(ctx, 9, p.ID, 10, "recount")
	require.NoError(t, err)
	require.Equal(t, int64(1), before)

	var adj model.InventoryAdjustment
	require.NoError(t, s.db.Where("product_id = ?", p.ID).First(&adj).Error)
	require.Equal(t, int64(9), adj.Delta)
}

func (s *gormRepositorySuite) TestTxManager_RollsBack() {
	t := s.T()
	ctx := context.Background()
	p := s.seedProduct(5)
	boom := errors.New("boom")

	err := gormrepo.NewTxManagerGorm(s.db).WithinTx(ctx, func(r repo.TxRepos) error {
		ok, err := r.Inventory().DecreaseStockIfEnough(ctx, p.ID, 5)
		require.NoError(t, err)
		require.True(t, ok)
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := gormrepo.NewProductGormRepository(s.db).FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, int64(5), got.Stock)
}

func (s *gormRepositorySuite) TestAddress_SingleDefault() {
	t := s.T()
	ctx := context.Background()
	addresses := gormrepo.NewAddressGormRepository(s.db)

	newAddr := func() model.Address {
		a, err := addresses.Create(ctx, model.Address{
			UserID: 1, Name: gofakeit.Name(), Street: gofakeit.Street(), City: gofakeit.City(),
			State: gofakeit.State(), Zip: gofakeit.Zip(), Phone: gofakeit.Phone(), Country: "JP",
		})
		require.NoError(t, err)
		return a
	}
	a1, a2 := newAddr(), newAddr()

	require.NoError(t, addresses.SetDefault(ctx, 1, a1.ID))
	require.NoError(t, addresses.SetDefault(ctx, 1, a2.ID))
	require.ErrorIs(t, addresses.SetDefault(ctx, 2, a1.ID), repo.ErrNotFound)

	list, err := addresses.ListByUserID(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, a2.ID, list[0].ID)
	require.True(t, list[0].IsDefault)
	require.False(t, list[1].IsDefault)
}

func (s *gormRepositorySuite) TestRefreshToken_MarkUsedOnce() {
	t := s.T()
	ctx := context.Background()
	users := gormrepo.NewUserGormRepository(s.db)
	tokens := gormrepo.NewRefreshTokenRepository(s.db)

	u := &model.User{Email: gofakeit.Email(), PasswordHash: "x", Role: model.RoleCustomer, IsActive: true}
	require.NoError(t, users.Create(ctx, u))
	dup := &model.User{Email: u.Email, PasswordHash: "x", Role: model.RoleCustomer, IsActive: true}
	require.ErrorIs(t, users.Create(ctx, dup), repo.ErrDuplicate)

	rt := &model.RefreshToken{ID: gofakeit.UUID(), UserID: u.ID, TokenHash: gofakeit.UUID(), ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, tokens.Create(ctx, rt))

	require.NoError(t, tokens.MarkUsed(ctx, rt.ID))
	require.ErrorIs(t, tokens.MarkUsed(ctx, rt.ID), repo.ErrNotFound)

	require.NoError(t, tokens.DeleteAllByUserID(ctx, u.ID))
	_, err := tokens.FindByTokenHash(ctx, rt.TokenHash)
	require.ErrorIs(t, err, repo.ErrNotFound)
}
