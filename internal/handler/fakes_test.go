package handler

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/address"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/user"
)

// store is an in-memory backing for every repository the handler touches.
// One mutex stands in for the row locks the database takes.
type store struct {
	mu        sync.Mutex
	products  map[string]catalog.Product
	carts     map[string]*cart.Cart
	addresses map[string][]address.Address
	orders    map[string]*order.Order
	users     map[string]*user.User
	wishlists map[string][]string
	banners   []catalog.Banner
	keys      map[string]*auth.APIKeyInfo
	codes     map[string]string
	coupons   map[string]*coupon.Coupon
}

func newStore() *store {
	return &store{
		products:  make(map[string]catalog.Product),
		carts:     make(map[string]*cart.Cart),
		addresses: make(map[string][]address.Address),
		orders:    make(map[string]*order.Order),
		users:     make(map[string]*user.User),
		wishlists: make(map[string][]string),
		keys:      make(map[string]*auth.APIKeyInfo),
		codes:     make(map[string]string),
		coupons:   make(map[string]*coupon.Coupon),
	}
}

// --- products ---

type fakeProducts struct{ *store }

func (f fakeProducts) List(_ context.Context, _ catalog.ProductFilter) ([]catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]catalog.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f fakeProducts) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &p, nil
}

func (f fakeProducts) GetByIDs(_ context.Context, ids []string) ([]catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []catalog.Product
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f fakeProducts) Exists(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.products[id]
	return ok, nil
}

func (f fakeProducts) Create(_ context.Context, p *catalog.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == "" {
		p.ID = "p" + p.Slug
	}
	f.products[p.ID] = *p
	return nil
}

func (f fakeProducts) Update(_ context.Context, p *catalog.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[p.ID]; !ok {
		return catalog.ErrNotFound
	}
	f.products[p.ID] = *p
	return nil
}

func (f fakeProducts) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.products, id)
	return nil
}

// --- carts ---

type fakeCarts struct{ *store }

func (f fakeCarts) Get(_ context.Context, userID string) (*cart.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.carts[userID]
	if !ok {
		return &cart.Cart{UserID: userID}, nil
	}
	cp := *c
	cp.Items = append([]cart.Item(nil), c.Items...)
	return &cp, nil
}

func (f fakeCarts) Mutate(_ context.Context, userID string, fn func(c *cart.Cart) error) (*cart.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &cart.Cart{UserID: userID}
	if cur, ok := f.carts[userID]; ok {
		c.Items = append(c.Items, cur.Items...)
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	c.UpdatedAt = time.Now()
	f.carts[userID] = c
	return c, nil
}

func (f fakeCarts) Delete(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.carts, userID)
	return nil
}

// --- addresses ---

type fakeAddresses struct{ *store }

func (f fakeAddresses) List(_ context.Context, userID string) ([]address.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]address.Address(nil), f.addresses[userID]...), nil
}

func (f fakeAddresses) Create(_ context.Context, userID string, a address.Address) ([]address.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.addresses[userID]
	a.ID = "a" + string(rune('1'+len(list)))
	if len(list) == 0 {
		a.IsDefault = true
	}
	list = append(list, a)
	f.addresses[userID] = list
	return append([]address.Address(nil), list...), nil
}

func (f fakeAddresses) Update(_ context.Context, userID, id string, p address.Patch) ([]address.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.addresses[userID]
	for i := range list {
		if list[i].ID == id {
			p.Apply(&list[i])
			return append([]address.Address(nil), list...), nil
		}
	}
	return nil, address.ErrNotFound
}

func (f fakeAddresses) Delete(_ context.Context, userID, id string) ([]address.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.addresses[userID]
	for i := range list {
		if list[i].ID == id {
			list = append(list[:i], list[i+1:]...)
			f.addresses[userID] = list
			return append([]address.Address(nil), list...), nil
		}
	}
	return nil, address.ErrNotFound
}

func (f fakeAddresses) SetDefault(_ context.Context, userID, id string) ([]address.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.addresses[userID]
	found := false
	for i := range list {
		list[i].IsDefault = list[i].ID == id
		found = found || list[i].IsDefault
	}
	if !found {
		return nil, address.ErrNotFound
	}
	return append([]address.Address(nil), list...), nil
}

// --- orders ---

type fakeOrders struct{ *store }

func (f fakeOrders) Place(ctx context.Context, userID string, p order.Placement) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var lines []order.Line
	if c, ok := f.carts[userID]; ok {
		for _, it := range c.Items {
			pr, ok := f.products[it.ProductID]
			if !ok {
				return nil, &order.ProductNotFoundError{ProductID: it.ProductID}
			}
			lines = append(lines, order.Line{
				ProductID: pr.ID,
				Name:      pr.Name,
				Price:     pr.Price,
				Quantity:  it.Quantity,
				Size:      it.Size,
				Color:     it.Color,
			})
		}
	}
	o, err := p.Build(ctx, lines)
	if err != nil {
		return nil, err
	}
	f.orders[o.ID] = o
	delete(f.carts, userID)
	cp := *o
	return &cp, nil
}

func (f fakeOrders) Get(_ context.Context, id string) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f fakeOrders) GetByPublicID(_ context.Context, publicID string) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.PublicID == publicID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, order.ErrNotFound
}

func (f fakeOrders) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []order.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f fakeOrders) List(context.Context, order.Filter) ([]order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]order.Order, 0, len(f.orders))
	for _, o := range f.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (f fakeOrders) Update(_ context.Context, id string, fn func(o *order.Order) error) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	if err := fn(&cp); err != nil {
		return nil, err
	}
	f.orders[id] = &cp
	out := cp
	return &out, nil
}

func (f fakeOrders) DeleteForUser(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok || o.UserID != userID {
		return order.ErrNotFound
	}
	delete(f.orders, id)
	return nil
}

func (f fakeOrders) DeleteAllForUser(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for id, o := range f.orders {
		if o.UserID == userID {
			delete(f.orders, id)
			n++
		}
	}
	return n, nil
}

func (f fakeOrders) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.orders[id]; !ok {
		return order.ErrNotFound
	}
	delete(f.orders, id)
	return nil
}

func (f fakeOrders) Stats(context.Context) (order.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := order.Stats{TotalOrders: len(f.orders)}
	for _, o := range f.orders {
		if o.IsPaid {
			s.Revenue = s.Revenue.Add(o.TotalPrice)
		}
	}
	return s, nil
}

// --- users ---

type fakeUsers struct{ *store }

func (f fakeUsers) Get(_ context.Context, id string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f fakeUsers) List(context.Context) ([]user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]user.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f fakeUsers) Count(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users), nil
}

func (f fakeUsers) FindOrCreateByPhone(_ context.Context, phone string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Phone == phone {
			cp := *u
			return &cp, nil
		}
	}
	u := &user.User{ID: "u-" + phone, Phone: phone, Name: "User-" + phone[len(phone)-4:]}
	f.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (f fakeUsers) Create(_ context.Context, u *user.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f fakeUsers) Update(_ context.Context, u *user.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.ID]; !ok {
		return user.ErrNotFound
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f fakeUsers) SetAdmin(_ context.Context, id string, admin bool) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	u.IsAdmin = admin
	cp := *u
	return &cp, nil
}

func (f fakeUsers) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return user.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f fakeUsers) Wishlist(_ context.Context, userID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wishlists[userID], nil
}

func (f fakeUsers) AddToWishlist(_ context.Context, userID, productID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.wishlists[userID] {
		if id == productID {
			return f.wishlists[userID], nil
		}
	}
	f.wishlists[userID] = append(f.wishlists[userID], productID)
	return f.wishlists[userID], nil
}

func (f fakeUsers) RemoveFromWishlist(_ context.Context, userID, productID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, id := range f.wishlists[userID] {
		if id != productID {
			out = append(out, id)
		}
	}
	f.wishlists[userID] = out
	return out, nil
}

// --- banners ---

type fakeBanners struct{ *store }

func (f fakeBanners) List(_ context.Context, kind catalog.BannerKind, activeOnly bool) ([]catalog.Banner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []catalog.Banner
	for _, b := range f.banners {
		if b.Kind == kind && (b.Active || !activeOnly) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f fakeBanners) Create(_ context.Context, b *catalog.Banner) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.banners = append(f.banners, *b)
	return nil
}

func (f fakeBanners) Update(context.Context, *catalog.Banner) error {
	return errors.New("not implemented")
}

func (f fakeBanners) Toggle(context.Context, catalog.BannerKind, string) (*catalog.Banner, error) {
	return nil, errors.New("not implemented")
}

func (f fakeBanners) Delete(context.Context, catalog.BannerKind, string) error {
	return errors.New("not implemented")
}

// --- api keys and otp codes ---

type fakeKeys struct{ *store }

func (f fakeKeys) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k, ok := f.keys[hash]
	if !ok {
		return nil, auth.ErrUnauthorized
	}
	return k, nil
}

func (f fakeKeys) Create(_ context.Context, k *auth.APIKeyInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[k.KeyHash] = k
	return nil
}

type fakeCodes struct{ *store }

func (f fakeCodes) Save(_ context.Context, phone, code string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[phone] = code
	return nil
}

func (f fakeCodes) Consume(_ context.Context, phone, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.codes[phone] != code {
		return false, nil
	}
	delete(f.codes, phone)
	return true, nil
}

// --- coupons ---

type fakeCoupons struct{ *store }

func (f fakeCoupons) FindByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.coupons {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, coupon.ErrInvalidCoupon
}

func (f fakeCoupons) Get(_ context.Context, id string) (*coupon.Coupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.coupons[id]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f fakeCoupons) List(context.Context) ([]coupon.Coupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]coupon.Coupon, 0, len(f.coupons))
	for _, c := range f.coupons {
		out = append(out, *c)
	}
	return out, nil
}

func (f fakeCoupons) ListActive(_ context.Context, now time.Time) ([]coupon.Coupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []coupon.Coupon
	for _, c := range f.coupons {
		if c.Active && (c.ExpiresAt == nil || c.ExpiresAt.After(now)) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f fakeCoupons) Create(_ context.Context, c *coupon.Coupon) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.coupons {
		if existing.Code == c.Code {
			return coupon.ErrDuplicateCode
		}
	}
	c.ID = "c" + strconv.Itoa(len(f.coupons)+1)
	cp := *c
	f.coupons[c.ID] = &cp
	return nil
}

func (f fakeCoupons) Update(_ context.Context, c *coupon.Coupon) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.coupons[c.ID]; !ok {
		return coupon.ErrNotFound
	}
	cp := *c
	f.coupons[c.ID] = &cp
	return nil
}

func (f fakeCoupons) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.coupons[id]; !ok {
		return coupon.ErrNotFound
	}
	delete(f.coupons, id)
	return nil
}

type evaluatorFunc func(ctx context.Context, code string, amount decimal.Decimal) (coupon.Discount, error)

func (f evaluatorFunc) Evaluate(ctx context.Context, code string, amount decimal.Decimal) (coupon.Discount, error) {
	return f(ctx, code, amount)
}

func (f evaluatorFunc) Quote(ctx context.Context, code string) (coupon.Quote, error) {
	return func(amount decimal.Decimal) (coupon.Discount, error) {
		return f(ctx, code, amount)
	}, nil
}
