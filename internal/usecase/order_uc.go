package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"marketplace-payments/internal/domain"
	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/repository"
)

type OrderUseCase struct {
	orders   repository.OrderRepository
	payments PaymentUseCase
	log      *zerolog.Logger
}

func NewOrderUseCase(orders repository.OrderRepository, payments PaymentUseCase, logger *zerolog.Logger) *OrderUseCase {
	l := logger.With().Str("component", "OrderUseCase").Logger()
	return &OrderUseCase{orders: orders, payments: payments, log: &l}
}

// Pay pushes a collect request for the order total to the buyer.
func (u *OrderUseCase) Pay(ctx context.Context, userID, orderID, phone string) (*model.Payment, error) {
	o, err := u.orders.FindByID(ctx, repository.NoTX, orderID)
	if err != nil {
		return nil, err
	}
	if o.BuyerID != userID {
		return nil, domain.ErrForbidden
	}
	if !model.OrderLifecycle.Can(o.Status, model.OrderEventPaid) {
		return nil, domain.ErrOrderNotPayable
	}
	p, err := u.payments.Initiate(ctx, InitiatePayment{
		UserID:      userID,
		Amount:      o.Total,
		Purpose:     model.PurposeOrder,
		Phone:       phone,
		Description: "Order " + o.ID,
		Related:     &model.RelatedRef{ID: o.ID, Kind: model.RelatedOrder},
	})
	if p != nil {
		if serr := u.orders.SetPayment(ctx, repository.NoTX, o.ID, p.ID); serr != nil {
			u.log.Warn().Err(serr).Str("order_id", o.ID).Msg("failed to link payment to order")
		}
	}
	return p, err
}
