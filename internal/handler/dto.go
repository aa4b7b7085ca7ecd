package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/address"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/user"
)

// Money is written as a JSON number; the storefront client does arithmetic on it.
func money(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func optMoney(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	v := money(d.Decimal)
	return &v
}

type userResponse struct {
	ID            string     `json:"_id"`
	Name          string     `json:"name"`
	Email         string     `json:"email,omitempty"`
	Phone         string     `json:"phone,omitempty"`
	Mobile        string     `json:"mobile,omitempty"`
	Avatar        string     `json:"avatar,omitempty"`
	Gender        string     `json:"gender,omitempty"`
	DateOfBirth   *time.Time `json:"dateOfBirth,omitempty"`
	WhatsappOptIn bool       `json:"whatsappOptIn"`
	IsAdmin       bool       `json:"isAdmin"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func toUser(u *user.User) userResponse {
	return userResponse{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Phone:         u.Phone,
		Mobile:        u.Mobile,
		Avatar:        u.Avatar,
		Gender:        u.Gender,
		DateOfBirth:   u.DateOfBirth,
		WhatsappOptIn: u.WhatsappOptIn,
		IsAdmin:       u.IsAdmin,
		CreatedAt:     u.CreatedAt,
	}
}

type profileRequest struct {
	Name          *string    `json:"name"`
	Email         *string    `json:"email"`
	Mobile        *string    `json:"mobile"`
	Avatar        *string    `json:"avatar"`
	Gender        *string    `json:"gender"`
	DateOfBirth   *time.Time `json:"dateOfBirth"`
	WhatsappOptIn *bool      `json:"whatsappOptIn"`
}

func (p profileRequest) patch() user.ProfilePatch {
	return user.ProfilePatch{
		Name:          p.Name,
		Email:         p.Email,
		Mobile:        p.Mobile,
		Avatar:        p.Avatar,
		Gender:        p.Gender,
		DateOfBirth:   p.DateOfBirth,
		WhatsappOptIn: p.WhatsappOptIn,
	}
}

type productBody struct {
	Name         string           `json:"name"`
	Slug         string           `json:"slug"`
	Description  string           `json:"description"`
	Price        decimal.Decimal  `json:"price"`
	MRP          *decimal.Decimal `json:"mrp,omitempty"`
	Images       []string         `json:"images"`
	Category     string           `json:"category"`
	SubCategory  string           `json:"subCategory,omitempty"`
	Sizes        []string         `json:"sizes"`
	Colors       []string         `json:"colors"`
	Tags         []string         `json:"tags"`
	Stock        int              `json:"stock"`
	IsTrending   bool             `json:"isTrending"`
	IsNewArrival bool             `json:"isNewArrival"`
	IsBestSeller bool             `json:"isBestSeller"`
}

func (b productBody) product(id string) *catalog.Product {
	p := &catalog.Product{
		ID:           id,
		Name:         b.Name,
		Slug:         b.Slug,
		Description:  b.Description,
		Price:        b.Price,
		Images:       b.Images,
		CategoryID:   b.Category,
		SubCategory:  b.SubCategory,
		Sizes:        b.Sizes,
		Colors:       b.Colors,
		Tags:         b.Tags,
		Stock:        b.Stock,
		IsTrending:   b.IsTrending,
		IsNewArrival: b.IsNewArrival,
		IsBestSeller: b.IsBestSeller,
	}
	if p.Slug == "" {
		p.Slug = catalog.Slugify(p.Name)
	}
	if b.MRP != nil {
		p.MRP = decimal.NewNullDecimal(*b.MRP)
	}
	return p
}

type productResponse struct {
	ID           string    `json:"_id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description"`
	Price        float64   `json:"price"`
	MRP          *float64  `json:"mrp,omitempty"`
	Images       []string  `json:"images"`
	Category     string    `json:"category"`
	SubCategory  string    `json:"subCategory,omitempty"`
	Sizes        []string  `json:"sizes"`
	Colors       []string  `json:"colors"`
	Tags         []string  `json:"tags"`
	Stock        int       `json:"stock"`
	IsTrending   bool      `json:"isTrending"`
	IsNewArrival bool      `json:"isNewArrival"`
	IsBestSeller bool      `json:"isBestSeller"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func toProduct(p *catalog.Product) productResponse {
	return productResponse{
		ID:           p.ID,
		Name:         p.Name,
		Slug:         p.Slug,
		Description:  p.Description,
		Price:        money(p.Price),
		MRP:          optMoney(p.MRP),
		Images:       orEmpty(p.Images),
		Category:     p.CategoryID,
		SubCategory:  p.SubCategory,
		Sizes:        orEmpty(p.Sizes),
		Colors:       orEmpty(p.Colors),
		Tags:         orEmpty(p.Tags),
		Stock:        p.Stock,
		IsTrending:   p.IsTrending,
		IsNewArrival: p.IsNewArrival,
		IsBestSeller: p.IsBestSeller,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func toProducts(ps []catalog.Product) []productResponse {
	out := make([]productResponse, len(ps))
	for i := range ps {
		out[i] = toProduct(&ps[i])
	}
	return out
}

type categoryBody struct {
	Name        *string `json:"name"`
	Slug        *string `json:"slug"`
	Description *string `json:"description"`
}

func (b categoryBody) patch() catalog.CategoryPatch {
	return catalog.CategoryPatch{Name: b.Name, Slug: b.Slug, Description: b.Description}
}

type categoryResponse struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
}

func toCategory(c *catalog.Category) categoryResponse {
	return categoryResponse{ID: c.ID, Name: c.Name, Slug: c.Slug, Description: c.Description}
}

type ctaBody struct {
	Label string `json:"label"`
	Link  string `json:"link"`
}

type bannerBody struct {
	Title     string  `json:"title"`
	Subtitle  string  `json:"subtitle,omitempty"`
	Image     string  `json:"image"`
	Link      string  `json:"link,omitempty"`
	Primary   ctaBody `json:"primaryCta"`
	Secondary ctaBody `json:"secondaryCta"`
	Position  int     `json:"position"`
	Active    *bool   `json:"isActive,omitempty"`
}

func (b bannerBody) banner(kind catalog.BannerKind, id string) *catalog.Banner {
	active := true
	if b.Active != nil {
		active = *b.Active
	}
	return &catalog.Banner{
		ID:        id,
		Kind:      kind,
		Title:     b.Title,
		Subtitle:  b.Subtitle,
		Image:     b.Image,
		Link:      b.Link,
		Primary:   catalog.CTA(b.Primary),
		Secondary: catalog.CTA(b.Secondary),
		Position:  b.Position,
		Active:    active,
	}
}

type bannerResponse struct {
	ID string `json:"_id"`
	bannerBody
}

func toBanner(b *catalog.Banner) bannerResponse {
	active := b.Active
	return bannerResponse{
		ID: b.ID,
		bannerBody: bannerBody{
			Title:     b.Title,
			Subtitle:  b.Subtitle,
			Image:     b.Image,
			Link:      b.Link,
			Primary:   ctaBody(b.Primary),
			Secondary: ctaBody(b.Secondary),
			Position:  b.Position,
			Active:    &active,
		},
	}
}

type addressBody struct {
	FullName      *string `json:"fullName"`
	Phone         *string `json:"phone"`
	AltPhone      *string `json:"altPhone"`
	Line          *string `json:"address"`
	Pincode       *string `json:"pincode"`
	Landmark      *string `json:"landmark"`
	City          *string `json:"city"`
	Locality      *string `json:"locality"`
	State         *string `json:"state"`
	SuggestedName *string `json:"suggestedName"`
	IsDefault     *bool   `json:"isDefault"`
}

func (b addressBody) patch() address.Patch {
	return address.Patch{
		FullName:      b.FullName,
		Phone:         b.Phone,
		AltPhone:      b.AltPhone,
		Line:          b.Line,
		Pincode:       b.Pincode,
		Landmark:      b.Landmark,
		City:          b.City,
		Locality:      b.Locality,
		State:         b.State,
		SuggestedName: b.SuggestedName,
		IsDefault:     b.IsDefault,
	}
}

type addressResponse struct {
	ID            string `json:"_id"`
	FullName      string `json:"fullName"`
	Phone         string `json:"phone"`
	AltPhone      string `json:"altPhone,omitempty"`
	Line          string `json:"address"`
	Pincode       string `json:"pincode"`
	Landmark      string `json:"landmark,omitempty"`
	City          string `json:"city"`
	Locality      string `json:"locality,omitempty"`
	State         string `json:"state"`
	SuggestedName string `json:"suggestedName,omitempty"`
	IsDefault     bool   `json:"isDefault"`
}

func toAddresses(list []address.Address) []addressResponse {
	out := make([]addressResponse, len(list))
	for i, a := range list {
		out[i] = addressResponse{
			ID:            a.ID,
			FullName:      a.FullName,
			Phone:         a.Phone,
			AltPhone:      a.AltPhone,
			Line:          a.Line,
			Pincode:       a.Pincode,
			Landmark:      a.Landmark,
			City:          a.City,
			Locality:      a.Locality,
			State:         a.State,
			SuggestedName: a.SuggestedName,
			IsDefault:     a.IsDefault,
		}
	}
	return out
}

type couponBody struct {
	Title         *string          `json:"title,omitempty"`
	Description   *string          `json:"description,omitempty"`
	Image         *string          `json:"image,omitempty"`
	Code          *string          `json:"code,omitempty"`
	DiscountType  *string          `json:"discountType,omitempty"`
	DiscountValue *decimal.Decimal `json:"discountValue,omitempty"`
	MaxDiscount   *decimal.Decimal `json:"maxDiscount,omitempty"`
	MinOrderValue *decimal.Decimal `json:"minOrderValue,omitempty"`
	UsageLimit    *int             `json:"usageLimit,omitempty"`
	ExpiresAt     *time.Time       `json:"expiresAt,omitempty"`
	Active        *bool            `json:"isActive,omitempty"`
}

// patch maps the fields present in the body. The usage counter is never
// taken from a request.
func (b couponBody) patch() coupon.Patch {
	p := coupon.Patch{
		Title:         b.Title,
		Description:   b.Description,
		Image:         b.Image,
		Code:          b.Code,
		DiscountValue: b.DiscountValue,
		MaxDiscount:   b.MaxDiscount,
		MinOrderValue: b.MinOrderValue,
		UsageLimit:    b.UsageLimit,
		ExpiresAt:     b.ExpiresAt,
		Active:        b.Active,
	}
	if b.DiscountType != nil {
		t := coupon.DiscountType(*b.DiscountType)
		p.DiscountType = &t
	}
	return p
}

type couponResponse struct {
	ID            string     `json:"_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Image         string     `json:"image,omitempty"`
	Code          string     `json:"code"`
	DiscountType  string     `json:"discountType"`
	DiscountValue float64    `json:"discountValue"`
	MaxDiscount   *float64   `json:"maxDiscount,omitempty"`
	MinOrderValue float64    `json:"minOrderValue"`
	UsageLimit    int        `json:"usageLimit"`
	UsedCount     int        `json:"usedCount"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	Active        bool       `json:"isActive"`
}

func toCoupon(c *coupon.Coupon) couponResponse {
	return couponResponse{
		ID:            c.ID,
		Title:         c.Title,
		Description:   c.Description,
		Image:         c.Image,
		Code:          c.Code,
		DiscountType:  string(c.DiscountType),
		DiscountValue: money(c.DiscountValue),
		MaxDiscount:   optMoney(c.MaxDiscount),
		MinOrderValue: money(c.MinOrderValue),
		UsageLimit:    c.UsageLimit,
		UsedCount:     c.UsedCount,
		ExpiresAt:     c.ExpiresAt,
		Active:        c.Active,
	}
}

func toCoupons(cs []coupon.Coupon) []couponResponse {
	out := make([]couponResponse, len(cs))
	for i := range cs {
		out[i] = toCoupon(&cs[i])
	}
	return out
}

type itemResponse struct {
	ProductID string  `json:"product"`
	Name      string  `json:"name"`
	Quantity  int     `json:"qty"`
	Price     float64 `json:"price"`
	Size      string  `json:"size,omitempty"`
	Color     string  `json:"color,omitempty"`
	Image     string  `json:"image,omitempty"`
}

func toItems(items []order.Item) []itemResponse {
	out := make([]itemResponse, len(items))
	for i, it := range items {
		out[i] = itemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     money(it.Price),
			Size:      it.Size,
			Color:     it.Color,
			Image:     it.Image,
		}
	}
	return out
}

type customerResponse struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

func toCustomer(c *order.Customer) *customerResponse {
	if c == nil {
		return nil
	}
	return &customerResponse{Name: c.Name, Email: c.Email}
}

type orderResponse struct {
	ID              string                `json:"_id"`
	PublicID        string                `json:"orderId"`
	User            string                `json:"user"`
	Customer        *customerResponse     `json:"customer,omitempty"`
	Items           []itemResponse        `json:"orderItems"`
	ShippingAddress order.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                `json:"paymentMethod"`
	ItemsPrice      float64               `json:"itemsPrice"`
	ShippingPrice   float64               `json:"shippingPrice"`
	TaxPrice        float64               `json:"taxPrice"`
	Discount        float64               `json:"discount"`
	TotalPrice      float64               `json:"totalPrice"`
	CouponCode      string                `json:"couponCode,omitempty"`
	IsPaid          bool                  `json:"isPaid"`
	PaidAt          *time.Time            `json:"paidAt,omitempty"`
	IsDelivered     bool                  `json:"isDelivered"`
	DeliveredAt     *time.Time            `json:"deliveredAt,omitempty"`
	Status          order.Status          `json:"status"`
	CancelReason    string                `json:"cancelReason,omitempty"`
	CancelledAt     *time.Time            `json:"cancelledAt,omitempty"`
	CreatedAt       time.Time             `json:"createdAt"`
	UpdatedAt       time.Time             `json:"updatedAt"`
}

func toOrder(o *order.Order) orderResponse {
	return orderResponse{
		ID:              o.ID,
		PublicID:        o.PublicID,
		User:            o.UserID,
		Customer:        toCustomer(o.Customer),
		Items:           toItems(o.Items),
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   string(o.PaymentMethod),
		ItemsPrice:      money(o.ItemsPrice),
		ShippingPrice:   money(o.ShippingPrice),
		TaxPrice:        money(o.TaxPrice),
		Discount:        money(o.Discount),
		TotalPrice:      money(o.TotalPrice),
		CouponCode:      o.CouponCode,
		IsPaid:          o.IsPaid,
		PaidAt:          o.PaidAt,
		IsDelivered:     o.IsDelivered,
		DeliveredAt:     o.DeliveredAt,
		Status:          o.Status,
		CancelReason:    o.CancelReason,
		CancelledAt:     o.CancelledAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func toOrders(os []order.Order) []orderResponse {
	out := make([]orderResponse, len(os))
	for i := range os {
		out[i] = toOrder(&os[i])
	}
	return out
}

type trackingResponse struct {
	PublicID        string            `json:"orderId"`
	Status          order.Status      `json:"status"`
	IsPaid          bool              `json:"isPaid"`
	IsDelivered     bool              `json:"isDelivered"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
	DeliveredAt     *time.Time        `json:"deliveredAt,omitempty"`
	Items           []trackedItem     `json:"orderItems"`
	ShippingAddress trackedAddress    `json:"shippingAddress"`
	ItemsPrice      float64           `json:"itemsPrice"`
	ShippingPrice   float64           `json:"shippingPrice"`
	TaxPrice        float64           `json:"taxPrice"`
	Discount        float64           `json:"discount"`
	TotalPrice      float64           `json:"totalPrice"`
	Customer        *customerResponse `json:"user,omitempty"`
}

// trackedItem and trackedAddress are the anonymous tracking shapes; they
// have no id fields.
type trackedItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"qty"`
	Price    float64 `json:"price"`
	Size     string  `json:"size,omitempty"`
	Color    string  `json:"color,omitempty"`
	Image    string  `json:"image,omitempty"`
}

type trackedAddress struct {
	FullName      string `json:"fullName"`
	Phone         string `json:"phone"`
	AddressLine1  string `json:"addressLine1"`
	AddressLine2  string `json:"addressLine2,omitempty"`
	City          string `json:"city"`
	State         string `json:"state"`
	Pincode       string `json:"pincode"`
	SuggestedName string `json:"suggestedName,omitempty"`
}

func toTracking(t *order.Tracking) trackingResponse {
	items := make([]trackedItem, len(t.Items))
	for i, it := range t.Items {
		items[i] = trackedItem{
			Name:     it.Name,
			Quantity: it.Quantity,
			Price:    money(it.Price),
			Size:     it.Size,
			Color:    it.Color,
			Image:    it.Image,
		}
	}
	a := t.ShippingAddress
	addr := trackedAddress{
		FullName:      a.FullName,
		Phone:         a.Phone,
		AddressLine1:  a.AddressLine1,
		AddressLine2:  a.AddressLine2,
		City:          a.City,
		State:         a.State,
		Pincode:       a.Pincode,
		SuggestedName: a.SuggestedName,
	}

	return trackingResponse{
		PublicID:        t.PublicID,
		Status:          t.Status,
		IsPaid:          t.IsPaid,
		IsDelivered:     t.IsDelivered,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
		DeliveredAt:     t.DeliveredAt,
		Items:           items,
		ShippingAddress: addr,
		ItemsPrice:      money(t.ItemsPrice),
		ShippingPrice:   money(t.ShippingPrice),
		TaxPrice:        money(t.TaxPrice),
		Discount:        money(t.Discount),
		TotalPrice:      money(t.TotalPrice),
		Customer:        toCustomer(t.Customer),
	}
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
