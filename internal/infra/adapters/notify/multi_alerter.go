package notify

import (
	"context"
	"errors"

	"marketplace-payments/internal/domain/ports/adapter"
)

var _ adapter.OpsAlerter = (MultiAlerter)(nil)

// MultiAlerter fans an alert out to every channel and joins the failures.
// One channel failing does not stop the others.
type MultiAlerter []adapter.OpsAlerter

func (m MultiAlerter) Alert(ctx context.Context, subject, body string) error {
	var errs []error
	for _, a := range m {
		if err := a.Alert(ctx, subject, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
