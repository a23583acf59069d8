package repository_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"marketplace/internal/domain/model"
	gormrepo "marketplace/internal/infra/repository"
	"marketplace/internal/usecase"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// 実DBのTxとロックを通してusecaseを動かす

const integrationDay = "20260305"

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func (s *gormRepositorySuite) cartUsecase() *usecase.CartUsecase {
	return usecase.NewCartUsecase(
		gormrepo.NewTxManagerGorm(s.db),
		gormrepo.NewCartGormRepository(s.db),
		gormrepo.NewCartItemGormRepository(s.db),
		gormrepo.NewProductGormRepository(s.db),
	)
}

func (s *gormRepositorySuite) orderUsecase() *usecase.OrderUsecase {
	return usecase.NewOrderUsecase(
		gormrepo.NewTxManagerGorm(s.db),
		gormrepo.NewOrderGormRepository(s.db),
		gormrepo.NewOrderItemGormRepository(s.db),
		gormrepo.NewAddressGormRepository(s.db),
		usecase.FlatRatePolicy{ShippingFee: 500, FreeShippingThreshold: 5000, TaxRate: decimal.RequireFromString("0.10")},
		fixedClock{t: time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)},
		usecase.OrderSettings{MaxAttempts: 3, Location: time.UTC, DefaultCountry: "JP"},
	)
}

func shippingInput() *usecase.ShippingAddressInput {
	return &usecase.ShippingAddressInput{
		Name:   gofakeit.Name(),
		Street: gofakeit.Street(),
		City:   gofakeit.City(),
		State:  gofakeit.State(),
		Zip:    gofakeit.Zip(),
		Phone:  gofakeit.Phone(),
	}
}

func (s *gormRepositorySuite) stockOf(productID int64) int64 {
	p, err := gormrepo.NewProductGormRepository(s.db).FindByID(context.Background(), productID)
	s.Require().NoError(err)
	return p.Stock
}

func (s *gormRepositorySuite) countRows(m interface{}) int64 {
	var n int64
	s.Require().NoError(s.db.Model(m).Count(&n).Error)
	return n
}

// 同じゲストカートを同時にマージしても1回だけ
func (s *gormRepositorySuite) TestCartUsecase_MergeGuestCartConcurrent() {
	t := s.T()
	ctx := context.Background()
	uc := s.cartUsecase()
	p := s.seedProduct(10)
	session := gofakeit.UUID()

	_, err := uc.AddItem(ctx, model.GuestOwner(session), usecase.AddCartItemInput{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var merged atomic.Int64
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := uc.MergeGuestCart(ctx, session, 42)
			if s.NoError(err) && ok {
				merged.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int64(1), merged.Load())

	got, err := uc.GetCart(ctx, model.UserOwner(42))
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	require.Equal(t, int64(2), got.TotalItems)
	require.Equal(t, int64(200), got.TotalPrice)

	_, err = gormrepo.NewCartGormRepository(s.db).FindByOwner(ctx, model.GuestOwner(session))
	require.Error(t, err)
	require.Equal(t, int64(1), s.countRows(&model.Cart{}))
}

// 途中で失敗した注文は注文行も在庫も残さない
func (s *gormRepositorySuite) TestOrderUsecase_PlaceOrderRollsBack() {
	t := s.T()
	ctx := context.Background()
	uc := s.orderUsecase()
	plenty := s.seedProduct(10)
	scarce := s.seedProduct(1)
	require.Less(t, plenty.ID, scarce.ID)

	tests := []struct {
		name  string
		items []usecase.OrderLineInput
		kind  error
	}{
		{
			name:  "unknown product",
			items: []usecase.OrderLineInput{{ProductID: plenty.ID, Quantity: 2}, {ProductID: 99999, Quantity: 1}},
			kind:  usecase.ErrNotFound,
		},
		{
			// plentyの在庫を減らした後にscarceで失敗する
			name:  "second product short",
			items: []usecase.OrderLineInput{{ProductID: plenty.ID, Quantity: 2}, {ProductID: scarce.ID, Quantity: 2}},
			kind:  usecase.ErrValidation,
		},
	}

	for _, tt := range tests {
		_, err := uc.PlaceOrder(ctx, 1, usecase.PlaceOrderInput{Items: tt.items, ShippingAddress: shippingInput()})
		require.ErrorIs(t, err, tt.kind, tt.name)

		require.Zero(t, s.countRows(&model.Order{}), tt.name)
		require.Zero(t, s.countRows(&model.OrderItem{}), tt.name)
		require.Equal(t, int64(10), s.stockOf(plenty.ID), tt.name)
		require.Equal(t, int64(1), s.stockOf(scarce.ID), tt.name)
	}
}

// その日3件ある状態で同時に2件確定すると-0004と-0005
func (s *gormRepositorySuite) TestOrderUsecase_PlaceOrderConcurrentNumbers() {
	t := s.T()
	ctx := context.Background()
	uc := s.orderUsecase()
	p := s.seedProduct(10)
	orders := gormrepo.NewOrderGormRepository(s.db)

	for i := int64(1); i <= 3; i++ {
		o := model.Order{
			OrderNumber:   usecase.FormatOrderNumber(integrationDay, i),
			CustomerID:    9,
			PaymentMethod: model.PaymentMethodCOD,
			PaymentStatus: model.PaymentStatusPending,
			Status:        model.OrderStatusPending,
		}
		require.NoError(t, orders.Create(ctx, &o))
	}

	var wg sync.WaitGroup
	numbers := make([]string, 2)
	for i := range numbers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := uc.PlaceOrder(ctx, int64(i+1), usecase.PlaceOrderInput{
				Items:           []usecase.OrderLineInput{{ProductID: p.ID, Quantity: 1}},
				ShippingAddress: shippingInput(),
			})
			if s.NoError(err) {
				numbers[i] = out.OrderNumber
			}
		}(i)
	}
	wg.Wait()

	sort.Strings(numbers)
	require.Equal(t, []string{
		fmt.Sprintf("ORD-%s-0004", integrationDay),
		fmt.Sprintf("ORD-%s-0005", integrationDay),
	}, numbers)
	require.Equal(t, int64(8), s.stockOf(p.ID))
}

// 明細の並びが逆の注文が同時に来てもデッドロックしない
func (s *gormRepositorySuite) TestOrderUsecase_PlaceOrderOppositeLineOrder() {
	t := s.T()
	ctx := context.Background()
	uc := s.orderUsecase()
	a := s.seedProduct(100)
	b := s.seedProduct(100)

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		items := []usecase.OrderLineInput{{ProductID: a.ID, Quantity: 1}, {ProductID: b.ID, Quantity: 1}}
		if i%2 == 1 {
			items[0], items[1] = items[1], items[0]
		}
		wg.Add(1)
		go func(customerID int64) {
			defer wg.Done()
			_, err := uc.PlaceOrder(ctx, customerID, usecase.PlaceOrderInput{Items: items, ShippingAddress: shippingInput()})
			s.NoError(err)
		}(int64(i + 1))
	}
	wg.Wait()

	require.Equal(t, int64(100-n), s.stockOf(a.ID))
	require.Equal(t, int64(100-n), s.stockOf(b.ID))
	require.Equal(t, int64(n), s.countRows(&model.Order{}))
	require.Equal(t, int64(2*n), s.countRows(&model.OrderItem{}))
}
