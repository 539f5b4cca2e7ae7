package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"marketplace-payments/internal/domain/model"
)

type AgentRepository interface {
	Save(ctx context.Context, tx Tx, a *model.Agent) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Agent, error)
	FindByUserID(ctx context.Context, tx Tx, userID string) (*model.Agent, error)
	FindByCode(ctx context.Context, tx Tx, code string) (*model.Agent, error)
	NextCodeSequence(ctx context.Context) (int64, error)

	// TransitionStatus applies from -> to only if the stored status is from.
	TransitionStatus(ctx context.Context, tx Tx, id string, from, to model.AgentStatus, approvedAt *time.Time) (bool, error)
	AssignPackage(ctx context.Context, tx Tx, id, packageID string) error
	// Credit adds amount to total earnings and available balance and bumps counter.
	Credit(ctx context.Context, tx Tx, id string, amount decimal.Decimal, counter model.AgentCounter) error
}

type AgentPackageRepository interface {
	Save(ctx context.Context, tx Tx, p *model.AgentPackage) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.AgentPackage, error)
	ListActive(ctx context.Context, tx Tx) ([]*model.AgentPackage, error)
}
