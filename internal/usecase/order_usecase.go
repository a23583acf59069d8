package usecase

import (
	"context"
	"errors"
	"math"
	"slices"
	"strings"
	"time"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"

	"github.com/samber/lo"
)

type OrderSettings struct {
	// 注文番号衝突時のやり直し回数（Txごと）
	MaxAttempts    int
	Location       *time.Location
	DefaultCountry string
}

type OrderUsecase struct {
	tx        repo.TransactionManager
	orders    repo.OrderRepository
	items     repo.OrderItemRepository
	addresses repo.AddressRepository
	pricing   PricingPolicy
	clock     Clock
	settings  OrderSettings
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	items repo.OrderItemRepository,
	addresses repo.AddressRepository,
	pricing PricingPolicy,
	clock Clock,
	settings OrderSettings,
) *OrderUsecase {
	if settings.MaxAttempts < 1 {
		settings.MaxAttempts = 1
	}
	return &OrderUsecase{
		tx:        tx,
		orders:    orders,
		items:     items,
		addresses: addresses,
		pricing:   pricing,
		clock:     clock,
		settings:  settings,
	}
}

type OrderLineInput struct {
	ProductID int64 `validate:"gt=0"`
	SizeID    int64 `validate:"gte=0"`
	ColorID   int64 `validate:"gte=0"`
	Quantity  int64 `validate:"min=1"`
}

type ShippingAddressInput struct {
	Name    string `validate:"required,max=100"`
	Street  string `validate:"required,max=255"`
	City    string `validate:"required,max=100"`
	State   string `validate:"required,max=100"`
	Zip     string `validate:"required,max=20"`
	Phone   string `validate:"required,max=30"`
	Country string `validate:"max=100"`
}

// items か from_cart のどちらか。住所は address_id かインライン
type PlaceOrderInput struct {
	Items           []OrderLineInput `validate:"dive"`
	FromCart        bool
	AddressID       int64                 `validate:"gte=0"`
	ShippingAddress *ShippingAddressInput `validate:"-"`
	PaymentMethod   string
}

type OrderItemOutput struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	SellerID  int64  `json:"seller_id"`
	SizeID    int64  `json:"size_id"`
	ColorID   int64  `json:"color_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
	LineTotal int64  `json:"line_total"`
}

type OrderOutput struct {
	ID              int64                 `json:"id"`
	OrderNumber     string                `json:"order_number"`
	CustomerID      int64                 `json:"customer_id"`
	ShippingAddress model.ShippingAddress `json:"shipping_address"`
	PaymentMethod   string                `json:"payment_method"`
	PaymentStatus   string                `json:"payment_status"`
	OrderStatus     string                `json:"order_status"`
	Subtotal        int64                 `json:"subtotal"`
	ShippingCost    int64                 `json:"shipping_cost"`
	TaxAmount       int64                 `json:"tax_amount"`
	TotalAmount     int64                 `json:"total_amount"`
	CreatedAt       time.Time             `json:"created_at"`
	Items           []OrderItemOutput     `json:"items"`
}

type OrderListOutput struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

type ListOrdersInput struct {
	Page   int
	Limit  int
	Status string
	From   *time.Time
	To     *time.Time
}

// 注文確定。注文・明細・在庫減算・カートクリアは1つのTxで全部かゼロか。
// 注文番号が衝突したらTxごとやり直す。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, customerID int64, in PlaceOrderInput) (OrderOutput, error) {
	if customerID <= 0 {
		return OrderOutput{}, unauthorizedError("unauthorized")
	}

	payment, err := parsePaymentMethod(in.PaymentMethod)
	if err != nil {
		return OrderOutput{}, err
	}

	if in.FromCart && len(in.Items) > 0 {
		return OrderOutput{}, validationError("specify either items or from_cart, not both")
	}
	if !in.FromCart && len(in.Items) == 0 {
		return OrderOutput{}, validationError("at least one item is required")
	}
	if err := validateInput(in); err != nil {
		return OrderOutput{}, err
	}

	ship, err := u.resolveShippingAddress(ctx, customerID, in)
	if err != nil {
		return OrderOutput{}, err
	}

	var out OrderOutput
	for attempt := 1; attempt <= u.settings.MaxAttempts; attempt++ {
		out, err = u.placeOnce(ctx, customerID, in, ship, payment)
		if errors.Is(err, repo.ErrOrderNumberTaken) {
			continue
		}
		if err != nil {
			return OrderOutput{}, asAppErrorOrInternal(err)
		}
		return out, nil
	}

	return OrderOutput{}, conflictError("could not assign a unique order number, please retry", err)
}

// 価格の決め方：カートからはカートのスナップショット、直接指定は現在価格
type orderLine struct {
	OrderLineInput
	price *int64
}

func (u *OrderUsecase) placeOnce(
	ctx context.Context,
	customerID int64,
	in PlaceOrderInput,
	ship model.ShippingAddress,
	payment model.PaymentMethod,
) (OrderOutput, error) {
	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var lines []orderLine
		var cartID int64

		if in.FromCart {
			cart, err := r.Carts().FindByOwnerForUpdate(ctx, model.UserOwner(customerID))
			if errors.Is(err, repo.ErrNotFound) {
				return validationError("cart is empty")
			}
			if err != nil {
				return err
			}
			cartItems, err := r.CartItems().ListByCartID(ctx, cart.ID)
			if err != nil {
				return err
			}
			if len(cartItems) == 0 {
				return validationError("cart is empty")
			}
			cartID = cart.ID
			lines = lo.Map(cartItems, func(ci model.CartItem, _ int) orderLine {
				price := ci.UnitPriceSnapshot
				return orderLine{
					OrderLineInput: OrderLineInput{
						ProductID: ci.ProductID,
						SizeID:    ci.SizeID,
						ColorID:   ci.ColorID,
						Quantity:  ci.Quantity,
					},
					price: &price,
				}
			})
		} else {
			lines = lo.Map(in.Items, func(l OrderLineInput, _ int) orderLine {
				return orderLine{OrderLineInput: l}
			})
		}

		//確定時に商品を再確認する
		orderItems := make([]model.OrderItem, 0, len(lines))
		need := make(map[int64]int64, len(lines))
		var subtotal int64
		for _, l := range lines {
			p, err := r.Products().FindByID(ctx, l.ProductID)
			if errors.Is(err, repo.ErrNotFound) {
				return notFoundError("product %d not found", l.ProductID)
			}
			if err != nil {
				return err
			}
			if !p.IsActive {
				return notFoundError("product %d not found", l.ProductID)
			}
			if !p.HasSize(l.SizeID) || !p.HasColor(l.ColorID) {
				return validationError("size or color is not available for product %d", l.ProductID)
			}

			if l.Quantity > math.MaxInt64-need[p.ID] {
				return validationError("insufficient stock for product %d", p.ID)
			}
			need[p.ID] += l.Quantity

			price := p.Price
			if l.price != nil {
				price = *l.price
			}

			orderItems = append(orderItems, model.OrderItem{
				ProductID:           p.ID,
				SellerID:            p.SellerID,
				SizeID:              l.SizeID,
				ColorID:             l.ColorID,
				ProductNameSnapshot: p.Name,
				UnitPriceSnapshot:   price,
				Quantity:            l.Quantity,
			})
			subtotal += price * l.Quantity
		}

		//在庫の行ロックは商品ID順に取る
		productIDs := lo.Keys(need)
		slices.Sort(productIDs)
		for _, id := range productIDs {
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, id, need[id])
			if err != nil {
				return err
			}
			if !ok {
				return validationError("insufficient stock for product %d", id)
			}
		}

		shipping, tax := u.pricing.Quote(subtotal)

		day := orderNumberDay(u.clock.Now(), u.settings.Location)
		seq, err := r.OrderCounters().Next(ctx, day)
		if err != nil {
			return err
		}

		order := model.Order{
			OrderNumber:     FormatOrderNumber(day, seq),
			CustomerID:      customerID,
			ShippingAddress: ship,
			PaymentMethod:   payment,
			PaymentStatus:   model.PaymentStatusPending,
			Status:          model.OrderStatusPending,
			Subtotal:        subtotal,
			ShippingCost:    shipping,
			TaxAmount:       tax,
			TotalAmount:     subtotal + shipping + tax,
		}
		//ErrOrderNumberTakenはそのまま返してやり直す
		if err := r.Orders().Create(ctx, &order); err != nil {
			return err
		}

		if err := r.OrderItems().CreateBulk(ctx, order.ID, orderItems); err != nil {
			return err
		}

		if cartID != 0 {
			if err := r.Carts().Clear(ctx, cartID); err != nil {
				return err
			}
		}

		out = toOrderOutput(order, orderItems)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// 自分の注文一覧（新しい順）
func (u *OrderUsecase) ListMyOrders(ctx context.Context, customerID int64, in ListOrdersInput) (OrderListOutput, error) {
	if customerID <= 0 {
		return OrderListOutput{}, unauthorizedError("unauthorized")
	}
	f, err := toOrderListFilter(in)
	if err != nil {
		return OrderListOutput{}, err
	}
	f.CustomerID = &customerID

	return listOrders(ctx, u.orders, u.items, f)
}

// 他人の注文は「存在しない扱い」
func (u *OrderUsecase) GetMyOrder(ctx context.Context, customerID int64, orderID int64) (OrderOutput, error) {
	if customerID <= 0 {
		return OrderOutput{}, unauthorizedError("unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, validationError("invalid id")
	}

	o, err := u.orders.FindByIDForCustomer(ctx, orderID, customerID)
	if errors.Is(err, repo.ErrNotFound) {
		return OrderOutput{}, notFoundError("order not found")
	}
	if err != nil {
		return OrderOutput{}, internalError(err)
	}

	items, err := u.items.ListByOrderID(ctx, o.ID)
	if err != nil {
		return OrderOutput{}, internalError(err)
	}
	return toOrderOutput(o, items), nil
}

// 顧客のキャンセルは発送準備前（PENDING/CONFIRMED）まで
func (u *OrderUsecase) CancelMyOrder(ctx context.Context, customerID int64, orderID int64) (OrderOutput, error) {
	if customerID <= 0 {
		return OrderOutput{}, unauthorizedError("unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, validationError("invalid id")
	}

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForCustomer(ctx, orderID, customerID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFoundError("order not found")
		}
		if err != nil {
			return err
		}
		if o.Status != model.OrderStatusPending && o.Status != model.OrderStatusConfirmed {
			return validationError("order can no longer be cancelled")
		}

		out, err = transitionOrder(ctx, r, o, model.OrderStatusCancelled, customerID)
		return err
	})
	if err != nil {
		return OrderOutput{}, asAppErrorOrInternal(err)
	}
	return out, nil
}

func listOrders(ctx context.Context, orders repo.OrderRepository, items repo.OrderItemRepository, f repo.OrderListFilter) (OrderListOutput, error) {
	list, total, err := orders.List(ctx, f)
	if err != nil {
		return OrderListOutput{}, internalError(err)
	}

	outs := make([]OrderOutput, 0, len(list))
	for _, o := range list {
		its, err := items.ListByOrderID(ctx, o.ID)
		if err != nil {
			return OrderListOutput{}, internalError(err)
		}
		outs = append(outs, toOrderOutput(o, its))
	}

	return OrderListOutput{Items: outs, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

// ステータス遷移。キャンセルは在庫戻し、代引きの配達完了は支払い済み、監査ログも同じTxで残す
func transitionOrder(ctx context.Context, r repo.TxRepos, o model.Order, to model.OrderStatus, actorUserID int64) (OrderOutput, error) {
	if !o.Status.CanTransitionTo(to) {
		return OrderOutput{}, validationError("cannot change order status from %s to %s", o.Status, to)
	}

	items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
	if err != nil {
		return OrderOutput{}, err
	}

	payment := o.PaymentStatus
	switch to {
	case model.OrderStatusCancelled:
		for _, it := range items {
			if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
				return OrderOutput{}, err
			}
		}
		if payment == model.PaymentStatusPaid {
			payment = model.PaymentStatusRefunded
		}
	case model.OrderStatusDelivered:
		if o.PaymentMethod == model.PaymentMethodCOD {
			payment = model.PaymentStatusPaid
		}
	}

	err = r.Orders().UpdateStatus(ctx, o.ID, o.Status, to, payment)
	if errors.Is(err, repo.ErrNotFound) {
		return OrderOutput{}, conflictError("order status was changed by another request", err)
	}
	if err != nil {
		return OrderOutput{}, err
	}

	before := o
	o.Status = to
	o.PaymentStatus = payment

	if err := r.AuditLogs().Create(ctx, model.AuditLog{
		ActorUserID:  actorUserID,
		Action:       model.AuditActionUpdateOrderStatus,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   o.ID,
		BeforeJSON:   statusJSON(before),
		AfterJSON:    statusJSON(o),
	}); err != nil {
		return OrderOutput{}, err
	}

	return toOrderOutput(o, items), nil
}

func (u *OrderUsecase) resolveShippingAddress(ctx context.Context, customerID int64, in PlaceOrderInput) (model.ShippingAddress, error) {
	if in.AddressID > 0 {
		a, err := u.addresses.FindByIDForUser(ctx, in.AddressID, customerID)
		if errors.Is(err, repo.ErrNotFound) {
			return model.ShippingAddress{}, notFoundError("address not found")
		}
		if err != nil {
			return model.ShippingAddress{}, internalError(err)
		}
		return a.Snapshot(), nil
	}

	if in.ShippingAddress == nil {
		return model.ShippingAddress{}, validationError("shipping address is required")
	}
	s := *in.ShippingAddress
	s = ShippingAddressInput{
		Name:    strings.TrimSpace(s.Name),
		Street:  strings.TrimSpace(s.Street),
		City:    strings.TrimSpace(s.City),
		State:   strings.TrimSpace(s.State),
		Zip:     strings.TrimSpace(s.Zip),
		Phone:   strings.TrimSpace(s.Phone),
		Country: strings.TrimSpace(s.Country),
	}
	if err := validateInput(s); err != nil {
		return model.ShippingAddress{}, err
	}
	if s.Country == "" {
		s.Country = u.settings.DefaultCountry
	}
	return model.ShippingAddress{
		Name:    s.Name,
		Street:  s.Street,
		City:    s.City,
		State:   s.State,
		Zip:     s.Zip,
		Phone:   s.Phone,
		Country: s.Country,
	}, nil
}

// 空は代引き。それ以外は未対応
func parsePaymentMethod(s string) (model.PaymentMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(model.PaymentMethodCOD):
		return model.PaymentMethodCOD, nil
	default:
		return "", validationError("unsupported payment_method: %s", s)
	}
}

func toOrderListFilter(in ListOrdersInput) (repo.OrderListFilter, error) {
	if in.Page < 1 {
		return repo.OrderListFilter{}, validationError("invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return repo.OrderListFilter{}, validationError("invalid limit")
	}

	f := repo.OrderListFilter{Page: in.Page, Limit: in.Limit, From: in.From, To: in.To}
	if s := strings.TrimSpace(in.Status); s != "" {
		st, ok := model.ParseOrderStatus(strings.ToUpper(s))
		if !ok {
			return repo.OrderListFilter{}, validationError("invalid order status")
		}
		f.Status = st
	}
	return f, nil
}

func statusJSON(o model.Order) string {
	return `{"order_status":"` + string(o.Status) + `","payment_status":"` + string(o.PaymentStatus) + `"}`
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := lo.Map(items, func(it model.OrderItem, _ int) OrderItemOutput {
		return OrderItemOutput{
			ID:        it.ID,
			ProductID: it.ProductID,
			SellerID:  it.SellerID,
			SizeID:    it.SizeID,
			ColorID:   it.ColorID,
			Name:      it.ProductNameSnapshot,
			Price:     it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal(),
		}
	})

	return OrderOutput{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		CustomerID:      o.CustomerID,
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   string(o.PaymentMethod),
		PaymentStatus:   string(o.PaymentStatus),
		OrderStatus:     string(o.Status),
		Subtotal:        o.Subtotal,
		ShippingCost:    o.ShippingCost,
		TaxAmount:       o.TaxAmount,
		TotalAmount:     o.TotalAmount,
		CreatedAt:       o.CreatedAt,
		Items:           outItems,
	}
}
