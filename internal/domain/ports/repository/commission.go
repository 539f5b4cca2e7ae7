package repository

import (
	"context"

	"marketplace-payments/internal/domain/model"
)

type CommissionRepository interface {
	// Insert stores c unless a grant of the same dedup class already exists
	// for (agent, business). It reports whether a row was written.
	Insert(ctx context.Context, tx Tx, c *model.Commission) (bool, error)
	ListByAgentAndBusiness(ctx context.Context, tx Tx, agentID, businessID string) ([]*model.Commission, error)
	ListByAgent(ctx context.Context, tx Tx, agentID string, limit, offset int) ([]*model.Commission, error)
}
