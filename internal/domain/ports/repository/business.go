package repository

import (
	"context"

	"marketplace-payments/internal/domain/model"
)

type BusinessRepository interface {
	Save(ctx context.Context, tx Tx, b *model.Business) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Business, error)
	// FindLiveByOwner returns the owner's non-cancelled business.
	FindLiveByOwner(ctx context.Context, tx Tx, ownerID string) (*model.Business, error)
	TransitionStatus(ctx context.Context, tx Tx, id string, from, to model.BusinessStatus) (bool, error)
}

type BusinessRequestRepository interface {
	Save(ctx context.Context, tx Tx, r *model.BusinessRequest) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.BusinessRequest, error)
	ListByAgent(ctx context.Context, tx Tx, agentID string, status *model.BusinessRequestStatus) ([]*model.BusinessRequest, error)
	SetPayment(ctx context.Context, tx Tx, id, paymentID string) error
	// TransitionStatus applies from -> to only if the stored status is from;
	// businessID is recorded when non-nil.
	TransitionStatus(ctx context.Context, tx Tx, id string, from, to model.BusinessRequestStatus, businessID *string) (bool, error)
}
