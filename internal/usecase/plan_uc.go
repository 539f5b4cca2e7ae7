package usecase

import (
	"context"

	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/repository"
)

// CatalogUseCase manages the purchasable catalogue: subscription plans,
// agent packages and coin packages.
type CatalogUseCase struct {
	plans    repository.SubscriptionPlanRepository
	packages repository.AgentPackageRepository
	coins    repository.CoinPackageRepository
}

// NewCatalogUseCase constructs a CatalogUseCase.
func NewCatalogUseCase(plans repository.SubscriptionPlanRepository, packages repository.AgentPackageRepository, coins repository.CoinPackageRepository) *CatalogUseCase {
	return &CatalogUseCase{plans: plans, packages: packages, coins: coins}
}

// SavePlan creates or updates a plan.
func (uc *CatalogUseCase) SavePlan(ctx context.Context, plan *model.SubscriptionPlan) error {
	return uc.plans.Save(ctx, repository.NoTX, plan)
}

// GetPlan retrieves a plan by ID.
func (uc *CatalogUseCase) GetPlan(ctx context.Context, id string) (*model.SubscriptionPlan, error) {
	return uc.plans.FindByID(ctx, repository.NoTX, id)
}

// Plans returns the active plans.
func (uc *CatalogUseCase) Plans(ctx context.Context) ([]*model.SubscriptionPlan, error) {
	return uc.plans.ListActive(ctx, repository.NoTX)
}

func (uc *CatalogUseCase) SaveAgentPackage(ctx context.Context, p *model.AgentPackage) error {
	return uc.packages.Save(ctx, repository.NoTX, p)
}

// AgentPackages returns the active agent packages.
func (uc *CatalogUseCase) AgentPackages(ctx context.Context) ([]*model.AgentPackage, error) {
	return uc.packages.ListActive(ctx, repository.NoTX)
}

func (uc *CatalogUseCase) SaveCoinPackage(ctx context.Context, p *model.CoinPackage) error {
	return uc.coins.Save(ctx, repository.NoTX, p)
}

// CoinPackages returns the active coin packages.
func (uc *CatalogUseCase) CoinPackages(ctx context.Context) ([]*model.CoinPackage, error) {
	return uc.coins.ListActive(ctx, repository.NoTX)
}
