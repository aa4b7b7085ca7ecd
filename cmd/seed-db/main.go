package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/db"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/security"
	"github.com/xenking/storefront/internal/storage/postgres"
)

type productJSON struct {
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	Price        decimal.Decimal  `json:"price"`
	MRP          *decimal.Decimal `json:"mrp"`
	Category     string           `json:"category"`
	SubCategory  string           `json:"subCategory"`
	Images       []string         `json:"images"`
	Sizes        []string         `json:"sizes"`
	Colors       []string         `json:"colors"`
	Tags         []string         `json:"tags"`
	Stock        int              `json:"stock"`
	IsTrending   bool             `json:"isTrending"`
	IsNewArrival bool             `json:"isNewArrival"`
	IsBestSeller bool             `json:"isBestSeller"`
}

var defaultCategories = []catalog.Category{
	{Name: "Men", Description: "Shirts, tees and more for men"},
	{Name: "Women", Description: "Dresses, denim and more for women"},
	{Name: "Accessories", Description: "Bags and finishing touches"},
}

type options struct {
	databaseURL  string
	productsFile string
	adminPhone   string
	apiKey       string
	apiKeyPepper string
	jwtSecret    string
}

func main() {
	_ = godotenv.Load()

	var o options
	flag.StringVar(&o.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&o.productsFile, "products-file", "", "path to products JSON file (default: built-in sample catalogue)")
	flag.StringVar(&o.adminPhone, "admin-phone", "9999999999", "phone number of the seeded admin user")
	flag.StringVar(&o.apiKey, "api-key", "", "admin API key to seed (or SHOP_SEED_API_KEY env)")
	flag.StringVar(&o.apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or SHOP_AUTH_API_KEY_PEPPER env)")
	flag.StringVar(&o.jwtSecret, "jwt-secret", "", "secret used to print an admin token (or SHOP_AUTH_JWT_SECRET env)")
	flag.Parse()

	envDefault(&o.databaseURL, "DATABASE_URL")
	envDefault(&o.apiKey, "SHOP_SEED_API_KEY")
	envDefault(&o.apiKeyPepper, "SHOP_AUTH_API_KEY_PEPPER")
	envDefault(&o.jwtSecret, "SHOP_AUTH_JWT_SECRET")

	if o.databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, o); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func envDefault(dst *string, key string) {
	if *dst == "" {
		*dst = os.Getenv(key)
	}
}

func run(ctx context.Context, o options) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, o.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	categories := postgres.NewCategoryRepository(pool)
	if err := seedCategories(ctx, categories); err != nil {
		return errors.Wrap(err, "seed categories")
	}
	if err := seedProducts(ctx, categories, postgres.NewProductRepository(pool), o.productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedCoupons(ctx, postgres.NewCouponRepository(pool)); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	users := postgres.NewUserRepository(pool)
	admin, err := users.FindOrCreateByPhone(ctx, o.adminPhone)
	if err != nil {
		return errors.Wrap(err, "create admin user")
	}
	if _, err := users.SetAdmin(ctx, admin.ID, true); err != nil {
		return errors.Wrap(err, "grant admin")
	}
	slog.Info("admin user ready", slog.String("id", admin.ID), slog.String("phone", admin.Phone))

	if o.apiKey != "" {
		if err := seedAPIKey(ctx, postgres.NewAPIKeyRepository(pool), o.apiKey, o.apiKeyPepper); err != nil {
			return errors.Wrap(err, "seed api key")
		}
	}

	if o.jwtSecret != "" {
		token, _, err := security.NewTokens([]byte(o.jwtSecret), 24*time.Hour).Issue(admin.ID)
		if err != nil {
			return errors.Wrap(err, "issue admin token")
		}
		fmt.Println(token)
	}
	return nil
}

func seedCategories(ctx context.Context, repo *postgres.CategoryRepository) error {
	for _, c := range defaultCategories {
		c.Slug = catalog.Slugify(c.Name)
		err := repo.Create(ctx, &c)
		switch {
		case errors.Is(err, catalog.ErrDuplicateSlug):
			slog.Info("category exists", slog.String("slug", c.Slug))
		case err != nil:
			return errors.Wrapf(err, "create category %s", c.Slug)
		default:
			slog.Info("created category", slog.String("slug", c.Slug))
		}
	}
	return nil
}

func seedProducts(ctx context.Context, categories *postgres.CategoryRepository, repo *postgres.ProductRepository, path string) error {
	data := db.SampleProducts
	if path != "" {
		slog.Info("reading products file", slog.String("path", path))
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return errors.Wrap(err, "read products file")
		}
	}
	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	list, err := categories.List(ctx)
	if err != nil {
		return errors.Wrap(err, "list categories")
	}
	bySlug := make(map[string]string, len(list))
	for _, c := range list {
		bySlug[c.Slug] = c.ID
	}

	slog.Info("creating products", slog.Int("count", len(products)))

	for _, p := range products {
		categoryID, ok := bySlug[p.Category]
		if !ok {
			return errors.Errorf("product %q: unknown category %q", p.Name, p.Category)
		}
		prod := &catalog.Product{
			Name:         p.Name,
			Slug:         catalog.Slugify(p.Name),
			Description:  p.Description,
			Price:        p.Price,
			Images:       p.Images,
			CategoryID:   categoryID,
			SubCategory:  p.SubCategory,
			Sizes:        p.Sizes,
			Colors:       p.Colors,
			Tags:         p.Tags,
			Stock:        p.Stock,
			IsTrending:   p.IsTrending,
			IsNewArrival: p.IsNewArrival,
			IsBestSeller: p.IsBestSeller,
		}
		if p.MRP != nil {
			prod.MRP = decimal.NewNullDecimal(*p.MRP)
		}
		if err := prod.Validate(); err != nil {
			return errors.Wrapf(err, "product %q", p.Name)
		}

		err := repo.Create(ctx, prod)
		switch {
		case errors.Is(err, catalog.ErrDuplicateSlug):
			slog.Info("product exists", slog.String("slug", prod.Slug))
		case err != nil:
			return errors.Wrapf(err, "create product %s", prod.Slug)
		default:
			slog.Info("created product", slog.String("id", prod.ID), slog.String("name", prod.Name))
		}
	}
	return nil
}

func seedCoupons(ctx context.Context, repo *postgres.CouponRepository) error {
	slog.Info("seeding sample coupons")

	coupons := []coupon.Coupon{
		{
			Code:          "WELCOME10",
			Title:         "Welcome offer",
			Description:   "10% off your first order, up to 200",
			DiscountType:  coupon.DiscountPercentage,
			DiscountValue: decimal.NewFromInt(10),
			MaxDiscount:   decimal.NewNullDecimal(decimal.NewFromInt(200)),
			Active:        true,
		},
		{
			Code:          "FLAT150",
			Title:         "Flat 150 off",
			Description:   "150 off orders of 999 or more",
			DiscountType:  coupon.DiscountFixed,
			DiscountValue: decimal.NewFromInt(150),
			MinOrderValue: decimal.NewFromInt(999),
			UsageLimit:    100,
			Active:        true,
		},
	}
	for i := range coupons {
		if err := coupons[i].Validate(); err != nil {
			return errors.Wrapf(err, "coupon %s", coupons[i].Code)
		}
	}
	if err := repo.Upsert(ctx, coupons); err != nil {
		return err
	}
	for _, c := range coupons {
		slog.Info("upserted coupon", slog.String("code", c.Code), slog.String("description", c.Description))
	}
	return nil
}

func seedAPIKey(ctx context.Context, repo *postgres.APIKeyRepository, apiKey, pepper string) error {
	slog.Info("seeding admin API key")

	k := &auth.APIKeyInfo{
		ID:      uuid.NewString(),
		KeyHash: security.HashAPIKey([]byte(pepper), apiKey),
		Name:    "Seeded admin key",
		Scopes:  []string{auth.ScopeAdmin},
	}
	if err := repo.Create(ctx, k); err != nil {
		return err
	}

	slog.Info("upserted API key", slog.String("name", k.Name))
	return nil
}
