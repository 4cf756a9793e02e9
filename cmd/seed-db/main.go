// Command seed-db loads restaurants and menu items from a JSON file (plain
// or gzip) and provisions bearer tokens for a default admin and customer.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/quickbite/quickbite/internal/domain/auth"
	"github.com/quickbite/quickbite/internal/domain/catalog"
	"github.com/quickbite/quickbite/internal/repository"
)

type menuItemJSON struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	Category        string          `json:"category"`
	Image           string          `json:"image"`
	PreparationTime int             `json:"preparationTime"`
}

type restaurantJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Cuisine     string          `json:"cuisine"`
	Phone       string          `json:"phone"`
	Email       string          `json:"email"`
	Address     catalog.Address `json:"address"`
	Rating      decimal.Decimal `json:"rating"`
	Menu        []menuItemJSON  `json:"menu"`
}

func main() {
	var (
		databaseURL   string
		seedFile      string
		adminToken    string
		customerToken string
		pepper        string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedFile, "seed-file", "db/seed/restaurants.json", "path to restaurants JSON file (.json or .json.gz)")
	flag.StringVar(&adminToken, "admin-token", "", "bearer token to seed for the admin user (or QUICKBITE_SEED_ADMIN_TOKEN env)")
	flag.StringVar(&customerToken, "customer-token", "", "bearer token to seed for a test customer (or QUICKBITE_SEED_CUSTOMER_TOKEN env)")
	flag.StringVar(&pepper, "token-pepper", "", "HMAC pepper for token hashing (or QUICKBITE_TOKEN_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if adminToken == "" {
		adminToken = os.Getenv("QUICKBITE_SEED_ADMIN_TOKEN")
	}
	if customerToken == "" {
		customerToken = os.Getenv("QUICKBITE_SEED_CUSTOMER_TOKEN")
	}
	if pepper == "" {
		pepper = os.Getenv("QUICKBITE_TOKEN_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, seedFile, adminToken, customerToken, pepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, seedFile, adminToken, customerToken, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	cat := repository.NewCatalogRepository(pool)

	if err := seedCatalog(ctx, cat, seedFile); err != nil {
		return errors.Wrap(err, "seed catalog")
	}

	if adminToken != "" {
		if err := seedToken(ctx, pool, "admin", adminToken, auth.RoleAdmin, pepper); err != nil {
			return errors.Wrap(err, "seed admin token")
		}
	}
	if customerToken != "" {
		if err := seedToken(ctx, pool, "customer", customerToken, auth.RoleCustomer, pepper); err != nil {
			return errors.Wrap(err, "seed customer token")
		}
	}

	return nil
}

func seedCatalog(ctx context.Context, cat *repository.CatalogRepository, seedFile string) error {
	slog.Info("reading seed file", slog.String("path", seedFile))

	f, err := os.Open(seedFile)
	if err != nil {
		return errors.Wrap(err, "open seed file")
	}
	defer func() { _ = f.Close() }()

	var reader io.Reader = f
	if strings.HasSuffix(seedFile, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrap(err, "open gzip reader")
		}
		defer func() { _ = gz.Close() }()
		reader = gz
	}

	var restaurants []restaurantJSON
	if err := json.NewDecoder(reader).Decode(&restaurants); err != nil {
		return errors.Wrap(err, "parse seed JSON")
	}

	slog.Info("seeding restaurants", slog.Int("count", len(restaurants)))

	now := time.Now()
	for _, r := range restaurants {
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		err := cat.CreateRestaurant(ctx, &catalog.Restaurant{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			Cuisine:     r.Cuisine,
			Phone:       r.Phone,
			Email:       r.Email,
			Address:     r.Address,
			Rating:      r.Rating,
			IsActive:    true,
			CreatedAt:   now,
		})
		if err != nil {
			return errors.Wrapf(err, "create restaurant %s", r.Name)
		}

		for _, m := range r.Menu {
			if m.ID == "" {
				m.ID = uuid.New().String()
			}
			prep := m.PreparationTime
			if prep < 1 {
				prep = 15
			}
			err := cat.CreateMenuItem(ctx, &catalog.MenuItem{
				ID:              m.ID,
				RestaurantID:    r.ID,
				Name:            m.Name,
				Description:     m.Description,
				Price:           m.Price,
				Category:        m.Category,
				Image:           m.Image,
				IsAvailable:     true,
				PreparationTime: prep,
				CreatedAt:       now,
			})
			if err != nil {
				return errors.Wrapf(err, "create menu item %s", m.Name)
			}
		}

		slog.Info("seeded restaurant", slog.String("name", r.Name), slog.Int("menu_items", len(r.Menu)))
	}

	return nil
}

func seedToken(ctx context.Context, pool *pgxpool.Pool, id, token string, role auth.Role, pepper string) error {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(token))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	_, err := pool.Exec(ctx, `INSERT INTO auth_tokens (id, key_hash, user_id, role, active)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (id) DO UPDATE SET key_hash = $2, user_id = $3, role = $4, active = TRUE`,
		id, keyHash, "seed-"+id, string(role),
	)
	if err != nil {
		return errors.Wrapf(err, "upsert token %s", id)
	}

	slog.Info("seeded token", slog.String("id", id), slog.String("role", string(role)))
	return nil
}
