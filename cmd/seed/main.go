package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"marketplace-payments/internal/config"
	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/infra/api"
	pg "marketplace-payments/internal/infra/db/postgres"
	"marketplace-payments/internal/usecase"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	adminID := flag.String("admin", "", "print an admin token for this user id")
	flag.Parse()

	// ---- Config ----
	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := zerolog.Nop()
	if err := pg.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsDir, &logger); err != nil {
		log.Fatalf("migrations: %v", err)
	}
	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	catalog := usecase.NewCatalogUseCase(pg.NewPostgresPlanRepo(pool), pg.NewAgentPackageRepo(pool), pg.NewCoinPackageRepo(pool))

	seedPlans(ctx, catalog)
	seedAgentPackages(ctx, catalog)
	seedCoinPackages(ctx, catalog)

	if *adminID != "" {
		tok, err := api.NewAuthManager(cfg.HTTP.JWTSecret, 30*24*time.Hour).Mint(*adminID, api.RoleAdmin)
		if err != nil {
			log.Fatalf("mint admin token: %v", err)
		}
		fmt.Printf("admin token for %s:\n%s\n", *adminID, tok)
	}
	fmt.Println("Seeding complete.")
}

func seedPlans(ctx context.Context, catalog *usecase.CatalogUseCase) {
	plans, err := catalog.Plans(ctx)
	if err != nil {
		log.Fatalf("list plans: %v", err)
	}
	if len(plans) > 0 {
		fmt.Printf("%d plans already present. No changes.\n", len(plans))
		return
	}
	seed := []struct {
		Name  string
		Tier  model.PlanTier
		Price int64
	}{
		{"Weekly", model.TierWeekly, 5_000},
		{"Monthly", model.TierMonthly, 15_000},
		{"Quarterly", model.TierQuarterly, 40_000},
		{"Annual", model.TierAnnual, 150_000},
	}
	for _, s := range seed {
		p, err := model.NewSubscriptionPlan("", s.Name, s.Tier, decimal.NewFromInt(s.Price))
		if err != nil {
			log.Fatalf("plan %q: %v", s.Name, err)
		}
		if err := catalog.SavePlan(ctx, p); err != nil {
			log.Fatalf("save plan %q: %v", s.Name, err)
		}
		fmt.Printf("seeded plan: %s (id=%s, tier=%s, price=%s TZS)\n", p.Name, p.ID, p.Tier, p.Price)
	}
}

func seedAgentPackages(ctx context.Context, catalog *usecase.CatalogUseCase) {
	pkgs, err := catalog.AgentPackages(ctx)
	if err != nil {
		log.Fatalf("list agent packages: %v", err)
	}
	if len(pkgs) > 0 {
		fmt.Printf("%d agent packages already present. No changes.\n", len(pkgs))
		return
	}
	seed := []struct {
		Name       string
		Price      int64
		Businesses int
	}{
		{"Starter", 20_000, 10},
		{"Pro", 50_000, 30},
		{"Elite", 100_000, 75},
	}
	for _, s := range seed {
		p, err := model.NewAgentPackage(s.Name, decimal.NewFromInt(s.Price), s.Businesses)
		if err != nil {
			log.Fatalf("agent package %q: %v", s.Name, err)
		}
		if err := catalog.SaveAgentPackage(ctx, p); err != nil {
			log.Fatalf("save agent package %q: %v", s.Name, err)
		}
		fmt.Printf("seeded agent package: %s (id=%s, businesses=%d, price=%s TZS)\n", p.Name, p.ID, p.NumberOfBusinesses, p.Price)
	}
}

func seedCoinPackages(ctx context.Context, catalog *usecase.CatalogUseCase) {
	pkgs, err := catalog.CoinPackages(ctx)
	if err != nil {
		log.Fatalf("list coin packages: %v", err)
	}
	if len(pkgs) > 0 {
		fmt.Printf("%d coin packages already present. No changes.\n", len(pkgs))
		return
	}
	seed := []struct {
		Name  string
		Coins int64
		Bonus int64
		Price int64
	}{
		{"Handful", 100, 0, 1_000},
		{"Bag", 550, 50, 5_000},
		{"Chest", 1_200, 200, 10_000},
	}
	for _, s := range seed {
		p, err := model.NewCoinPackage(s.Name, s.Coins, s.Bonus, decimal.NewFromInt(s.Price))
		if err != nil {
			log.Fatalf("coin package %q: %v", s.Name, err)
		}
		if err := catalog.SaveCoinPackage(ctx, p); err != nil {
			log.Fatalf("save coin package %q: %v", s.Name, err)
		}
		fmt.Printf("seeded coin package: %s (id=%s, coins=%d, price=%s TZS)\n", p.Name, p.ID, p.TotalCoins(), p.Price)
	}
}
