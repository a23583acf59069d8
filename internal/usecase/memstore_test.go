package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"

	"github.com/samber/lo"
)

// リポジトリのインメモリ実装。WithinTxは直列に実行し、エラーなら元に戻す。
// 行ロックの競合は再現しないので、同時実行はrepositoryの結合テストで見る
type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	nextID int64

	users      map[int64]model.User
	refresh    map[string]model.RefreshToken
	carts      map[int64]model.Cart
	cartItems  map[int64]model.CartItem
	products   map[int64]model.Product
	taxons     map[int64]model.Taxon
	addresses  map[int64]model.Address
	orders     map[int64]model.Order
	orderItems map[int64]model.OrderItem
	counters   map[string]int64
	wishlist   map[[2]int64]model.WishlistItem
	audit      []model.AuditLog
	adjust     []model.InventoryAdjustment

	// Orders().Createの前に呼ばれる（衝突の再現用）
	beforeOrderCreate func(o *model.Order) error
	// Carts().GetOrCreateが返すエラー
	getOrCreateErr error
	// DecreaseStockIfEnoughの呼び出し順（商品ID）
	stockDecrements []int64
}

func newMemStore() *memStore {
	return &memStore{
		users:      map[int64]model.User{},
		refresh:    map[string]model.RefreshToken{},
		carts:      map[int64]model.Cart{},
		cartItems:  map[int64]model.CartItem{},
		products:   map[int64]model.Product{},
		taxons:     map[int64]model.Taxon{},
		addresses:  map[int64]model.Address{},
		orders:     map[int64]model.Order{},
		orderItems: map[int64]model.OrderItem{},
		counters:   map[string]int64{},
		wishlist:   map[[2]int64]model.WishlistItem{},
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

type memSnapshot struct {
	nextID     int64
	users      map[int64]model.User
	refresh    map[string]model.RefreshToken
	carts      map[int64]model.Cart
	cartItems  map[int64]model.CartItem
	products   map[int64]model.Product
	taxons     map[int64]model.Taxon
	addresses  map[int64]model.Address
	orders     map[int64]model.Order
	orderItems map[int64]model.OrderItem
	counters   map[string]int64
	wishlist   map[[2]int64]model.WishlistItem
	audit      []model.AuditLog
	adjust     []model.InventoryAdjustment
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memSnapshot{
		nextID:     s.nextID,
		users:      lo.Assign(s.users),
		refresh:    lo.Assign(s.refresh),
		carts:      lo.Assign(s.carts),
		cartItems:  lo.Assign(s.cartItems),
		products:   lo.Assign(s.products),
		taxons:     lo.Assign(s.taxons),
		addresses:  lo.Assign(s.addresses),
		orders:     lo.Assign(s.orders),
		orderItems: lo.Assign(s.orderItems),
		counters:   lo.Assign(s.counters),
		wishlist:   lo.Assign(s.wishlist),
		audit:      append([]model.AuditLog(nil), s.audit...),
		adjust:     append([]model.InventoryAdjustment(nil), s.adjust...),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = snap.nextID
	s.users = snap.users
	s.refresh = snap.refresh
	s.carts = snap.carts
	s.cartItems = snap.cartItems
	s.products = snap.products
	s.taxons = snap.taxons
	s.addresses = snap.addresses
	s.orders = snap.orders
	s.orderItems = snap.orderItems
	s.counters = snap.counters
	s.wishlist = snap.wishlist
	s.audit = snap.audit
	s.adjust = snap.adjust
}

// repo.TransactionManager
func (s *memStore) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(memTx{s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type memTx struct{ s *memStore }

func (t memTx) Orders() repo.OrderRepository               { return memOrders{t.s} }
func (t memTx) OrderItems() repo.OrderItemRepository       { return memOrderItems{t.s} }
func (t memTx) OrderCounters() repo.OrderCounterRepository { return memCounters{t.s} }
func (t memTx) Carts() repo.CartRepository                 { return memCarts{t.s} }
func (t memTx) CartItems() repo.CartItemRepository         { return memCartItems{t.s} }
func (t memTx) Inventory() repo.InventoryRepository        { return memInventory{t.s} }
func (t memTx) Products() repo.ProductRepository           { return memProducts{t.s} }
func (t memTx) Addresses() repo.AddressRepository          { return memAddresses{t.s} }
func (t memTx) AuditLogs() repo.AuditLogRepository         { return memAudit{t.s} }

// =====================
// テスト用の直接操作
// =====================

func (s *memStore) putProduct(p model.Product) model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.id()
	}
	s.products[p.ID] = p
	return p
}

func (s *memStore) putUser(u model.User) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		u.ID = s.id()
	}
	s.users[u.ID] = u
	return u
}

func (s *memStore) putOrder(o model.Order, items ...model.OrderItem) model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == 0 {
		o.ID = s.id()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	s.orders[o.ID] = o
	for _, it := range items {
		it.ID = s.id()
		it.OrderID = o.ID
		s.orderItems[it.ID] = it
	}
	return o
}

func (s *memStore) product(id int64) model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id]
}

func (s *memStore) cartOf(owner model.CartOwner) (model.Cart, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.findCart(owner)
	return c, ok
}

func (s *memStore) itemsOf(cartID int64) []model.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCartItems(cartID)
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *memStore) orderItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orderItems)
}

func (s *memStore) auditLogs() []model.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.AuditLog(nil), s.audit...)
}

func (s *memStore) findCart(owner model.CartOwner) (model.Cart, bool) {
	for _, c := range s.carts {
		if owner.IsGuest() && c.SessionID != nil && *c.SessionID == owner.SessionID {
			return c, true
		}
		if !owner.IsGuest() && c.UserID != nil && *c.UserID == owner.UserID {
			return c, true
		}
	}
	return model.Cart{}, false
}

func (s *memStore) listCartItems(cartID int64) []model.CartItem {
	out := []model.CartItem{}
	for _, it := range s.cartItems {
		if it.CartID == cartID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// =====================
// Carts / CartItems
// =====================

type memCarts struct{ s *memStore }

func (r memCarts) GetOrCreate(ctx context.Context, owner model.CartOwner) (model.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.getOrCreateErr != nil {
		return model.Cart{}, r.s.getOrCreateErr
	}
	if c, ok := r.s.findCart(owner); ok {
		return c, nil
	}
	c := model.NewCart(owner)
	c.ID = r.s.id()
	r.s.carts[c.ID] = c
	return c, nil
}

func (r memCarts) FindByOwner(ctx context.Context, owner model.CartOwner) (model.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.findCart(owner); ok {
		return c, nil
	}
	return model.Cart{}, repo.ErrNotFound
}

func (r memCarts) FindByOwnerForUpdate(ctx context.Context, owner model.CartOwner) (model.Cart, error) {
	return r.FindByOwner(ctx, owner)
}

func (r memCarts) Delete(ctx context.Context, cartID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.carts[cartID]; !ok {
		return repo.ErrNotFound
	}
	for id, it := range r.s.cartItems {
		if it.CartID == cartID {
			delete(r.s.cartItems, id)
		}
	}
	delete(r.s.carts, cartID)
	return nil
}

func (r memCarts) Clear(ctx context.Context, cartID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, it := range r.s.cartItems {
		if it.CartID == cartID {
			delete(r.s.cartItems, id)
		}
	}
	c := r.s.carts[cartID]
	c.TotalItems, c.TotalPrice = 0, 0
	r.s.carts[cartID] = c
	return nil
}

func (r memCarts) RecalculateTotals(ctx context.Context, cartID int64) (model.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.carts[cartID]
	if !ok {
		return model.Cart{}, repo.ErrNotFound
	}
	c.TotalItems, c.TotalPrice = 0, 0
	for _, it := range r.s.listCartItems(cartID) {
		c.TotalItems += it.Quantity
		c.TotalPrice += it.Quantity * it.UnitPriceSnapshot
	}
	r.s.carts[cartID] = c
	return c, nil
}

type memCartItems struct{ s *memStore }

func (r memCartItems) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.listCartItems(cartID), nil
}

func (r memCartItems) Upsert(ctx context.Context, item model.CartItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, it := range r.s.cartItems {
		if it.CartID == item.CartID && it.SameLine(item) {
			it.Quantity += item.Quantity
			r.s.cartItems[id] = it
			return nil
		}
	}
	item.ID = r.s.id()
	r.s.cartItems[item.ID] = item
	return nil
}

func (r memCartItems) UpdateQuantity(ctx context.Context, cartID int64, cartItemID int64, qty int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.cartItems[cartItemID]
	if !ok || it.CartID != cartID {
		return repo.ErrNotFound
	}
	it.Quantity = qty
	r.s.cartItems[cartItemID] = it
	return nil
}

func (r memCartItems) Delete(ctx context.Context, cartID int64, cartItemID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.cartItems[cartItemID]
	if !ok || it.CartID != cartID {
		return repo.ErrNotFound
	}
	delete(r.s.cartItems, cartItemID)
	return nil
}

func (r memCartItems) FindByID(ctx context.Context, cartID int64, cartItemID int64) (model.CartItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.cartItems[cartItemID]
	if !ok || it.CartID != cartID {
		return model.CartItem{}, repo.ErrNotFound
	}
	return it, nil
}

// =====================
// Products / Inventory / Taxons
// =====================

type memProducts struct{ s *memStore }

func (r memProducts) List(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Product{}
	for _, p := range r.s.products {
		if !q.IncludeInactive && !p.IsActive {
			continue
		}
		if q.SellerID != nil && p.SellerID != *q.SellerID {
			continue
		}
		if q.Q != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(q.Q)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r memProducts) FindByID(ctx context.Context, id int64) (model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (r memProducts) Create(ctx context.Context, p model.Product, taxons repo.ProductTaxons) (model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p.ID = r.s.id()
	p.Sizes = r.s.taxonList(taxons.SizeIDs)
	p.Colors = r.s.taxonList(taxons.ColorIDs)
	p.Tags = r.s.taxonList(taxons.TagIDs)
	r.s.products[p.ID] = p
	return p, nil
}

func (r memProducts) Update(ctx context.Context, p model.Product, taxons repo.ProductTaxons) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.products[p.ID]
	if !ok {
		return repo.ErrNotFound
	}
	p.Stock = cur.Stock
	p.SellerID = cur.SellerID
	p.Sizes = r.s.taxonList(taxons.SizeIDs)
	p.Colors = r.s.taxonList(taxons.ColorIDs)
	p.Tags = r.s.taxonList(taxons.TagIDs)
	r.s.products[p.ID] = p
	return nil
}

func (r memProducts) SoftDelete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.s.products, id)
	return nil
}

func (s *memStore) taxonList(ids []int64) []model.Taxon {
	out := []model.Taxon{}
	for _, id := range ids {
		if t, ok := s.taxons[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

type memInventory struct{ s *memStore }

func (r memInventory) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.stockDecrements = append(r.s.stockDecrements, productID)
	p, ok := r.s.products[productID]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	r.s.products[productID] = p
	return true, nil
}

func (r memInventory) IncreaseStock(ctx context.Context, productID int64, qty int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[productID]
	if !ok {
		return repo.ErrNotFound
	}
	p.Stock += qty
	r.s.products[productID] = p
	return nil
}

func (r memInventory) SetStockWithAdjustment(ctx context.Context, actorUserID int64, productID int64, newStock int64, reason string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[productID]
	if !ok {
		return 0, repo.ErrNotFound
	}
	before := p.Stock
	p.Stock = newStock
	r.s.products[productID] = p
	r.s.adjust = append(r.s.adjust, model.InventoryAdjustment{
		ID:          r.s.id(),
		ProductID:   productID,
		ActorUserID: actorUserID,
		Delta:       newStock - before,
		Reason:      reason,
	})
	return before, nil
}

type memTaxons struct{ s *memStore }

func (r memTaxons) Create(ctx context.Context, t model.Taxon) (model.Taxon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, cur := range r.s.taxons {
		if cur.Kind == t.Kind && cur.Slug == t.Slug {
			return model.Taxon{}, repo.ErrDuplicate
		}
	}
	t.ID = r.s.id()
	r.s.taxons[t.ID] = t
	return t, nil
}

func (r memTaxons) Update(ctx context.Context, t model.Taxon) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.taxons[t.ID]
	if !ok || cur.Kind != t.Kind {
		return repo.ErrNotFound
	}
	for _, o := range r.s.taxons {
		if o.ID != t.ID && o.Kind == t.Kind && o.Slug == t.Slug {
			return repo.ErrDuplicate
		}
	}
	r.s.taxons[t.ID] = t
	return nil
}

func (r memTaxons) Delete(ctx context.Context, kind model.TaxonKind, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.taxons[id]
	if !ok || cur.Kind != kind {
		return repo.ErrNotFound
	}
	delete(r.s.taxons, id)
	return nil
}

func (r memTaxons) FindByID(ctx context.Context, kind model.TaxonKind, id int64) (model.Taxon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.taxons[id]
	if !ok || cur.Kind != kind {
		return model.Taxon{}, repo.ErrNotFound
	}
	return cur, nil
}

func (r memTaxons) ListByKind(ctx context.Context, kind model.TaxonKind) ([]model.Taxon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Taxon{}
	for _, t := range r.s.taxons {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memTaxons) CountByIDs(ctx context.Context, kind model.TaxonKind, ids []int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if t, ok := r.s.taxons[id]; ok && t.Kind == kind {
			n++
		}
	}
	return n, nil
}

// =====================
// Orders
// =====================

type memOrders struct{ s *memStore }

func (r memOrders) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[orderID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

func (r memOrders) FindByIDForCustomer(ctx context.Context, orderID int64, customerID int64) (model.Order, error) {
	o, err := r.FindByID(ctx, orderID)
	if err != nil {
		return model.Order{}, err
	}
	if o.CustomerID != customerID {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

func (r memOrders) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Order{}
	for _, o := range r.s.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.CustomerID != nil && o.CustomerID != *f.CustomerID {
			continue
		}
		if f.SellerID != nil && !r.s.hasSellerItems(o.ID, *f.SellerID) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	total := int64(len(out))

	start := (f.Page - 1) * f.Limit
	if start > len(out) {
		start = len(out)
	}
	end := start + f.Limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

func (r memOrders) Create(ctx context.Context, order *model.Order) error {
	if r.s.beforeOrderCreate != nil {
		if err := r.s.beforeOrderCreate(order); err != nil {
			return err
		}
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.orders {
		if o.OrderNumber == order.OrderNumber {
			return repo.ErrOrderNumberTaken
		}
	}
	order.ID = r.s.id()
	order.CreatedAt = time.Now()
	r.s.orders[order.ID] = *order
	return nil
}

func (r memOrders) UpdateStatus(ctx context.Context, orderID int64, from model.OrderStatus, to model.OrderStatus, payment model.PaymentStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[orderID]
	if !ok || o.Status != from {
		return repo.ErrNotFound
	}
	o.Status = to
	if payment != "" {
		o.PaymentStatus = payment
	}
	r.s.orders[orderID] = o
	return nil
}

func (r memOrders) HasSellerItems(ctx context.Context, orderID int64, sellerID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.hasSellerItems(orderID, sellerID), nil
}

func (s *memStore) hasSellerItems(orderID, sellerID int64) bool {
	for _, it := range s.orderItems {
		if it.OrderID == orderID && it.SellerID == sellerID {
			return true
		}
	}
	return false
}

type memOrderItems struct{ s *memStore }

func (r memOrderItems) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, it := range items {
		it.ID = r.s.id()
		it.OrderID = orderID
		r.s.orderItems[it.ID] = it
	}
	return nil
}

func (r memOrderItems) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.OrderItem{}
	for _, it := range r.s.orderItems {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// その日の初回は既存の最大連番から続ける
type memCounters struct{ s *memStore }

func (r memCounters) Next(ctx context.Context, day string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seq, ok := r.s.counters[day]
	if !ok {
		prefix := "ORD-" + day + "-"
		for _, o := range r.s.orders {
			if strings.HasPrefix(o.OrderNumber, prefix) {
				seq++
			}
		}
	}
	seq++
	r.s.counters[day] = seq
	return seq, nil
}

// =====================
// Addresses / Audit / Users / RefreshTokens / Wishlist
// =====================

type memAddresses struct{ s *memStore }

func (r memAddresses) Create(ctx context.Context, a model.Address) (model.Address, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a.ID = r.s.id()
	a.IsDefault = false
	r.s.addresses[a.ID] = a
	return a, nil
}

func (r memAddresses) ListByUserID(ctx context.Context, userID int64) ([]model.Address, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Address{}
	for _, a := range r.s.addresses {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r memAddresses) FindByIDForUser(ctx context.Context, addressID, userID int64) (model.Address, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.addresses[addressID]
	if !ok || a.UserID != userID {
		return model.Address{}, repo.ErrNotFound
	}
	return a, nil
}

func (r memAddresses) Update(ctx context.Context, a model.Address) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.addresses[a.ID]
	if !ok || cur.UserID != a.UserID {
		return repo.ErrNotFound
	}
	a.IsDefault = cur.IsDefault
	r.s.addresses[a.ID] = a
	return nil
}

func (r memAddresses) Delete(ctx context.Context, addressID, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.addresses[addressID]
	if !ok || cur.UserID != userID {
		return repo.ErrNotFound
	}
	delete(r.s.addresses, addressID)
	return nil
}

func (r memAddresses) SetDefault(ctx context.Context, userID, addressID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.addresses[addressID]
	if !ok || cur.UserID != userID {
		return repo.ErrNotFound
	}
	for id, a := range r.s.addresses {
		if a.UserID == userID {
			a.IsDefault = id == addressID
			r.s.addresses[id] = a
		}
	}
	return nil
}

type memAudit struct{ s *memStore }

func (r memAudit) Create(ctx context.Context, log model.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	log.ID = r.s.id()
	r.s.audit = append(r.s.audit, log)
	return nil
}

func (r memAudit) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.AuditLog{}
	for i := len(r.s.audit) - 1; i >= 0; i-- {
		l := r.s.audit[i]
		if f.Action != nil && l.Action != *f.Action {
			continue
		}
		if f.ResourceType != nil && l.ResourceType != *f.ResourceType {
			continue
		}
		if f.ActorUserID != nil && l.ActorUserID != *f.ActorUserID {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

type memUsers struct{ s *memStore }

func (r memUsers) Create(ctx context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return repo.ErrDuplicate
		}
	}
	user.ID = r.s.id()
	r.s.users[user.ID] = *user
	return nil
}

func (r memUsers) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &u, nil
}

func (r memUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r memUsers) TouchLastLogin(ctx context.Context, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return repo.ErrNotFound
	}
	now := time.Now()
	u.LastLoginAt = &now
	r.s.users[userID] = u
	return nil
}

func (r memUsers) IncrementTokenVersion(ctx context.Context, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return repo.ErrNotFound
	}
	u.TokenVersion++
	r.s.users[userID] = u
	return nil
}

func (r memUsers) SetApproved(ctx context.Context, userID int64, approved bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok || u.Role != model.RoleSeller {
		return repo.ErrNotFound
	}
	u.IsApproved = approved
	r.s.users[userID] = u
	return nil
}

func (r memUsers) ListSellers(ctx context.Context, f repo.SellerFilter) ([]model.User, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.User{}
	for _, u := range r.s.users {
		if u.Role != model.RoleSeller {
			continue
		}
		if f.Approved != nil && u.IsApproved != *f.Approved {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

type memRefreshTokens struct{ s *memStore }

func (r memRefreshTokens) Create(ctx context.Context, token *model.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.refresh[token.ID] = *token
	return nil
}

func (r memRefreshTokens) FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.refresh {
		if t.TokenHash == tokenHash {
			t := t
			return &t, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r memRefreshTokens) MarkUsed(ctx context.Context, tokenID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.refresh[tokenID]
	if !ok || t.UsedAt != nil || t.RevokedAt != nil {
		return repo.ErrNotFound
	}
	now := time.Now()
	t.UsedAt = &now
	r.s.refresh[tokenID] = t
	return nil
}

func (r memRefreshTokens) DeleteAllByUserID(ctx context.Context, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, t := range r.s.refresh {
		if t.UserID == userID {
			delete(r.s.refresh, id)
		}
	}
	return nil
}

func (r memRefreshTokens) DeleteByID(ctx context.Context, tokenID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.refresh, tokenID)
	return nil
}

func (s *memStore) refreshCount(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.refresh {
		if t.UserID == userID {
			n++
		}
	}
	return n
}

type memWishlist struct{ s *memStore }

func (r memWishlist) Add(ctx context.Context, userID, productID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := [2]int64{userID, productID}
	if _, ok := r.s.wishlist[key]; ok {
		return nil
	}
	r.s.wishlist[key] = model.WishlistItem{ID: r.s.id(), UserID: userID, ProductID: productID, CreatedAt: time.Now()}
	return nil
}

func (r memWishlist) Remove(ctx context.Context, userID, productID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := [2]int64{userID, productID}
	if _, ok := r.s.wishlist[key]; !ok {
		return repo.ErrNotFound
	}
	delete(r.s.wishlist, key)
	return nil
}

func (r memWishlist) ListByUserID(ctx context.Context, userID int64) ([]model.WishlistItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.WishlistItem{}
	for _, it := range r.s.wishlist {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// 固定時刻
type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var (
	_ repo.TransactionManager     = (*memStore)(nil)
	_ repo.TxRepos                = memTx{}
	_ repo.TaxonRepository        = memTaxons{}
	_ repo.UserRepository         = memUsers{}
	_ repo.RefreshTokenRepository = memRefreshTokens{}
	_ repo.WishlistRepository     = memWishlist{}
)
