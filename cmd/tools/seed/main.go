// cmd/tools/seed/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"time"

	"franchisee-hub/internal/common/auth"
	"franchisee-hub/internal/common/config"
	"franchisee-hub/internal/common/database"
	apperrors "franchisee-hub/internal/common/errors"
	"franchisee-hub/internal/common/logger"
	"franchisee-hub/internal/models"
	"franchisee-hub/internal/store"

	"go.uber.org/zap"
)

type options struct {
	adminEmail    string
	adminPassword string
	adminFirst    string
	adminLast     string
	franchisee    string
	days          int
	seed          uint64
}

func main() {
	var opts options
	flag.StringVar(&opts.adminEmail, "admin-email", "admin@franchiseehub.example", "admin account email")
	flag.StringVar(&opts.adminPassword, "admin-password", "", "admin account password (required)")
	flag.StringVar(&opts.adminFirst, "admin-first", "Hub", "admin first name")
	flag.StringVar(&opts.adminLast, "admin-last", "Admin", "admin last name")
	flag.StringVar(&opts.franchisee, "franchisee", "", "also create a granted franchisee with this email")
	flag.IntVar(&opts.days, "days", 30, "days of demo sales for the franchisee")
	flag.Uint64Var(&opts.seed, "seed", 1, "random seed for demo sales")
	flag.Parse()

	zapLog := logger.New("info", "console", "stderr")
	defer zapLog.Sync()

	if len(opts.adminPassword) < 8 {
		fmt.Fprintln(os.Stderr, "-admin-password of at least 8 characters is required")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(context.Background(), opts, zapLog); err != nil {
		zapLog.Fatal("seed failed", zap.Error(err))
	}
}

func run(ctx context.Context, opts options, zapLog *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return err
	}
	defer pg.Close()

	if err := database.ConnectWithRetry(ctx, "postgres connection", 5, time.Second, logger.NewZapAdapter(zapLog), pg.Ping); err != nil {
		return err
	}
	if err := store.Migrate(ctx, pg.DB); err != nil {
		return err
	}

	hash, err := auth.HashPassword(opts.adminPassword)
	if err != nil {
		return err
	}
	err = store.NewAdminStore(pg.DB).Create(ctx, &models.Admin{
		Email:        opts.adminEmail,
		PasswordHash: hash,
		FirstName:    opts.adminFirst,
		LastName:     opts.adminLast,
	})
	switch {
	case errors.Is(err, apperrors.ErrConflict):
		zapLog.Info("admin already exists", zap.String("email", opts.adminEmail))
	case err != nil:
		return err
	default:
		zapLog.Info("admin created", zap.String("email", opts.adminEmail))
	}

	if opts.franchisee == "" {
		return nil
	}

	sealer, err := auth.NewSealer(cfg.Auth.CredentialKey)
	if err != nil {
		return fmt.Errorf("credential key: %w", err)
	}
	cred, err := seedFranchisee(ctx, store.NewApplicantStore(pg.DB), store.NewCredentialStore(pg.DB, sealer), opts.franchisee)
	if err != nil {
		return err
	}
	zapLog.Info("franchisee ready",
		zap.String("email", cred.Email),
		zap.String("password", cred.Password),
		zap.Bool("created", cred.Created),
	)

	loc, err := time.LoadLocation(cfg.Ledger.Timezone)
	if err != nil {
		return err
	}
	n, err := seedSales(ctx, store.NewSalesStore(pg.DB), cred.Email, opts.days, time.Now().In(loc), opts.seed)
	if err != nil {
		return err
	}
	zapLog.Info("demo sales written", zap.Int("days", n))
	return nil
}

func seedFranchisee(ctx context.Context, applicants *store.ApplicantStore, credentials *store.CredentialStore, email string) (*models.IssuedCredential, error) {
	a := models.ApplicationForm{
		Email:        email,
		FirstName:    "Demo",
		LastName:     "Franchisee",
		Phone:        "+910000000000",
		BusinessName: "Demo Kitchen",
		SiteCity:     "Pune",
		Ownership:    models.OwnershipRented,
	}.ToApplicant(time.Now())

	if err := applicants.Create(ctx, a); err != nil && !errors.Is(err, apperrors.ErrConflict) {
		return nil, err
	}
	if err := applicants.SetStatus(ctx, a.Email, models.StatusGranted); err != nil {
		return nil, err
	}
	return credentials.Issue(ctx, a.Email)
}

type salesWriter interface {
	Upsert(ctx context.Context, email string, day time.Time, m models.SalesMetrics) (*models.SalesRecord, error)
}

// seedSales writes one record per day ending today. Values follow a weekly
// pattern with noise so charts look plausible.
func seedSales(ctx context.Context, sales salesWriter, email string, days int, today time.Time, seed uint64) (int, error) {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())

	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, -i)
		weekend := day.Weekday() == time.Saturday || day.Weekday() == time.Sunday

		customers := 40 + r.IntN(40)
		if weekend {
			customers += 30
		}
		orders := customers + r.IntN(customers/4+1)
		items := orders + r.IntN(orders+1)
		sale := math.Round(float64(orders)*(180+r.Float64()*120)*100) / 100

		if _, err := sales.Upsert(ctx, email, day, models.SalesMetrics{
			Sale:      sale,
			Customers: customers,
			Orders:    orders,
			ItemsSold: items,
		}); err != nil {
			return i, err
		}
	}
	return days, nil
}
