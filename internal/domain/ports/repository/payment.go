package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"marketplace-payments/internal/domain/model"
)

// -----------------------------
// Payments
// -----------------------------

type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	FindByExternalRef(ctx context.Context, tx Tx, ref string) (*model.Payment, error)
	ListByUser(ctx context.Context, tx Tx, userID string, limit, offset int) ([]*model.Payment, error)

	// AttachGatewayOrder records the provider order on a still-pending payment.
	AttachGatewayOrder(ctx context.Context, tx Tx, id, externalRef string, fee, net decimal.Decimal, raw string) error
	// TransitionIfPending moves a PENDING payment to status. It returns
	// false when the row was no longer PENDING.
	TransitionIfPending(ctx context.Context, tx Tx, id string, status model.PaymentStatus, paidAt *time.Time, raw string) (bool, error)
	// ListOutstanding returns PENDING payments with an external reference
	// created before createdBefore, ordered by (created_at, id). A non-nil
	// after resumes the listing past that row.
	ListOutstanding(ctx context.Context, tx Tx, createdBefore time.Time, after *model.Payment, limit int) ([]*model.Payment, error)

	CountByStatus(ctx context.Context, tx Tx, since time.Time) (map[model.PaymentStatus]int, error)
	SumSucceededByPurpose(ctx context.Context, tx Tx, since time.Time) (map[model.Purpose]decimal.Decimal, error)
}
