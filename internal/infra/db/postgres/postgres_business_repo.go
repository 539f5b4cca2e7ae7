package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"marketplace-payments/internal/domain"
	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/repository"
)

var _ repository.BusinessRepository = (*businessRepo)(nil)

type businessRepo struct{ pool *pgxpool.Pool }

func NewBusinessRepo(pool *pgxpool.Pool) *businessRepo {
	return &businessRepo{pool: pool}
}

const businessColumns = `id, owner_id, agent_id, name, category, description, region, district, ward, street, status, created_at, updated_at`

func scanBusiness(row pgx.Row) (*model.Business, error) {
	b := &model.Business{}
	if err := row.Scan(&b.ID, &b.OwnerID, &b.AgentID, &b.Name, &b.Category, &b.Description, &b.Location.Region, &b.Location.District, &b.Location.Ward, &b.Location.Street, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, scanErr(err)
	}
	return b, nil
}

// Save upserts b. A second live business for the same owner trips
// ux_businesses_live_owner and surfaces as domain.ErrAlreadyExists.
func (r *businessRepo) Save(ctx context.Context, tx repository.Tx, b *model.Business) error {
	const q = `
INSERT INTO businesses (
  id, owner_id, agent_id, name, category, description, region, district, ward, street, status, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
) ON CONFLICT (id) DO UPDATE SET
  agent_id=$3, name=$4, category=$5, description=$6, region=$7, district=$8, ward=$9, street=$10, status=$11, updated_at=$13;`

	loc := b.Location
	_, err := execSQL(ctx, r.pool, tx, q, b.ID, b.OwnerID, b.AgentID, b.Name, b.Category, b.Description, loc.Region, loc.District, loc.Ward, loc.Street, b.Status, b.CreatedAt, b.UpdatedAt)
	return writeErr(err)
}

func (r *businessRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Business, error) {
	q := lockClause(`SELECT `+businessColumns+` FROM businesses WHERE id=$1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanBusiness(row)
}

func (r *businessRepo) FindLiveByOwner(ctx context.Context, tx repository.Tx, ownerID string) (*model.Business, error) {
	q := lockClause(`SELECT `+businessColumns+` FROM businesses WHERE owner_id=$1 AND status <> 'CANCELLED' LIMIT 1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, ownerID)
	if err != nil {
		return nil, err
	}
	return scanBusiness(row)
}

func (r *businessRepo) TransitionStatus(ctx context.Context, tx repository.Tx, id string, from, to model.BusinessStatus) (bool, error) {
	const q = `UPDATE businesses SET status=$3, updated_at=NOW() WHERE id=$1 AND status=$2`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(from), string(to))
	if err != nil {
		return false, writeErr(err)
	}
	return cmd.RowsAffected() >= 1, nil
}

// ---- business requests ----

var _ repository.BusinessRequestRepository = (*businessRequestRepo)(nil)

type businessRequestRepo struct{ pool *pgxpool.Pool }

func NewBusinessRequestRepo(pool *pgxpool.Pool) *businessRequestRepo {
	return &businessRequestRepo{pool: pool}
}

const businessRequestColumns = `id, user_id, agent_id, business_name, owner_phone, category, description, region, district, ward, street, status, business_id, payment_id, created_at, updated_at`

func scanBusinessRequest(row pgx.Row) (*model.BusinessRequest, error) {
	br := &model.BusinessRequest{}
	if err := row.Scan(&br.ID, &br.UserID, &br.AgentID, &br.BusinessName, &br.OwnerPhone, &br.Category, &br.Description, &br.Location.Region, &br.Location.District, &br.Location.Ward, &br.Location.Street, &br.Status, &br.BusinessID, &br.PaymentID, &br.CreatedAt, &br.UpdatedAt); err != nil {
		return nil, scanErr(err)
	}
	return br, nil
}

func (r *businessRequestRepo) Save(ctx context.Context, tx repository.Tx, br *model.BusinessRequest) error {
	const q = `
INSERT INTO business_requests (
  id, user_id, agent_id, business_name, owner_phone, category, description, region, district, ward, street, status, business_id, payment_id, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16
) ON CONFLICT (id) DO UPDATE SET
  business_name=$4, owner_phone=$5, category=$6, description=$7, region=$8, district=$9, ward=$10, street=$11, status=$12, business_id=$13, payment_id=$14, updated_at=$16;`

	loc := br.Location
	_, err := execSQL(ctx, r.pool, tx, q, br.ID, br.UserID, br.AgentID, br.BusinessName, br.OwnerPhone, br.Category, br.Description, loc.Region, loc.District, loc.Ward, loc.Street, br.Status, br.BusinessID, br.PaymentID, br.CreatedAt, br.UpdatedAt)
	return writeErr(err)
}

func (r *businessRequestRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.BusinessRequest, error) {
	q := lockClause(`SELECT `+businessRequestColumns+` FROM business_requests WHERE id=$1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanBusinessRequest(row)
}

func (r *businessRequestRepo) ListByAgent(ctx context.Context, tx repository.Tx, agentID string, status *model.BusinessRequestStatus) ([]*model.BusinessRequest, error) {
	q := `SELECT ` + businessRequestColumns + ` FROM business_requests WHERE agent_id=$1`
	args := []interface{}{agentID}
	if status != nil {
		q += ` AND status=$2`
		args = append(args, string(*status))
	}
	q += ` ORDER BY created_at DESC;`

	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, queryErr(err)
	}
	defer rows.Close()

	var out []*model.BusinessRequest
	for rows.Next() {
		br, err := scanBusinessRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, br)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *businessRequestRepo) SetPayment(ctx context.Context, tx repository.Tx, id, paymentID string) error {
	const q = `UPDATE business_requests SET payment_id=$2, updated_at=NOW() WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, paymentID)
	if err != nil {
		return writeErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *businessRequestRepo) TransitionStatus(ctx context.Context, tx repository.Tx, id string, from, to model.BusinessRequestStatus, businessID *string) (bool, error) {
	const q = `
UPDATE business_requests
   SET status = $3,
       business_id = COALESCE($4, business_id),
       updated_at = NOW()
 WHERE id = $1
   AND status = $2`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(from), string(to), businessID)
	if err != nil {
		return false, writeErr(err)
	}
	return cmd.RowsAffected() >= 1, nil
}
