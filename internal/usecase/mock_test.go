//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"marketplace-payments/internal/domain"
	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/adapter"
	"marketplace-payments/internal/domain/ports/repository"
)

// -----------------------------
// Utilities: tiny helpers
// -----------------------------

func strp(s string) *string { return &s }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// =============================
// Transactions & locks
// =============================

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn immediately with NoTX unless WithTxFunc overrides it.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

type MockLocker struct {
	mu    sync.Mutex
	held  map[string]string
	ErrOn map[string]error
	Keys  []string
}

var _ adapter.Locker = (*MockLocker)(nil)

func NewMockLocker() *MockLocker {
	return &MockLocker{held: map[string]string{}, ErrOn: map[string]error{}}
}

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Keys = append(l.Keys, key)
	if err, bad := l.ErrOn[key]; bad {
		return "", err
	}
	if tok, ok := l.held[key]; ok && tok != "" {
		return "", domain.ErrLockNotAcquired
	}
	tok := uuid.NewString()
	l.held[key] = tok
	return tok, nil
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
		return nil
	}
	return errors.New("unlock token mismatch")
}

// ---- Captures audit events and alerts synchronously ----

type MockAuditSink struct {
	mu     sync.Mutex
	Events []model.AuditEvent
}

func (s *MockAuditSink) Emit(ctx context.Context, ev model.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Events = append(s.Events, ev)
	return nil
}

func (s *MockAuditSink) Kinds() []model.AuditKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.AuditKind, 0, len(s.Events))
	for _, e := range s.Events {
		out = append(out, e.Kind)
	}
	return out
}

type MockAlerter struct {
	mu       sync.Mutex
	Subjects []string
}

func (a *MockAlerter) Alert(ctx context.Context, subject, body string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Subjects = append(a.Subjects, subject)
	return nil
}

func (a *MockAlerter) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.Subjects)
}

// =============================
// Repositories
// =============================

// ---- Payments ----

type MockPaymentRepo struct {
	mu   sync.Mutex
	data map[string]*model.Payment

	SaveFunc                func(ctx context.Context, tx repository.Tx, p *model.Payment) error
	TransitionIfPendingFunc func(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, paidAt *time.Time, raw string) (bool, error)
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{data: map[string]*model.Payment{}}
}

func (r *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.data[p.ID] = &cp
	return nil
}

func (r *MockPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockPaymentRepo) FindByExternalRef(ctx context.Context, tx repository.Tx, ref string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.data {
		if p.ExternalRef != nil && *p.ExternalRef == ref {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockPaymentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit, offset int) ([]*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.data {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockPaymentRepo) AttachGatewayOrder(ctx context.Context, tx repository.Tx, id, externalRef string, fee, net decimal.Decimal, raw string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.ExternalRef = &externalRef
	p.Fee, p.NetAmount, p.ProviderResponse = fee, net, raw
	return nil
}

func (r *MockPaymentRepo) TransitionIfPending(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, paidAt *time.Time, raw string) (bool, error) {
	if r.TransitionIfPendingFunc != nil {
		return r.TransitionIfPendingFunc(ctx, tx, id, status, paidAt, raw)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status, p.PaidAt = status, paidAt
	if raw != "" {
		p.ProviderResponse = raw
	}
	return true, nil
}

func (r *MockPaymentRepo) ListOutstanding(ctx context.Context, tx repository.Tx, createdBefore time.Time, after *model.Payment, limit int) ([]*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	less := func(a, b *model.Payment) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	}
	var out []*model.Payment
	for _, p := range r.data {
		if p.Status == model.PaymentStatusPending && p.ExternalRef != nil && p.CreatedAt.Before(createdBefore) &&
			(after == nil || less(after, p)) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockPaymentRepo) CountByStatus(ctx context.Context, tx repository.Tx, since time.Time) (map[model.PaymentStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[model.PaymentStatus]int{}
	for _, p := range r.data {
		if !p.CreatedAt.Before(since) {
			out[p.Status]++
		}
	}
	return out, nil
}

func (r *MockPaymentRepo) SumSucceededByPurpose(ctx context.Context, tx repository.Tx, since time.Time) (map[model.Purpose]decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[model.Purpose]decimal.Decimal{}
	for _, p := range r.data {
		if p.Status == model.PaymentStatusSuccess && p.PaidAt != nil && !p.PaidAt.Before(since) {
			out[p.Purpose] = out[p.Purpose].Add(p.Amount)
		}
	}
	return out, nil
}

// Force overwrites a stored payment (used to age rows).
func (r *MockPaymentRepo) Force(p *model.Payment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.data[p.ID] = &cp
}

func (r *MockPaymentRepo) All() []*model.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Payment, 0, len(r.data))
	for _, p := range r.data {
		cp := *p
		out = append(out, &cp)
	}
	return out
}

// ---- Agents ----

type MockAgentRepo struct {
	mu   sync.Mutex
	data map[string]*model.Agent
	seq  int64
}

var _ repository.AgentRepository = (*MockAgentRepo)(nil)

func NewMockAgentRepo() *MockAgentRepo { return &MockAgentRepo{data: map[string]*model.Agent{}} }

func (r *MockAgentRepo) Save(ctx context.Context, tx repository.Tx, a *model.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.data {
		if x.ID != a.ID && (x.UserID == a.UserID || x.AgentCode == a.AgentCode) {
			return domain.ErrAlreadyExists
		}
	}
	cp := *a
	r.data[a.ID] = &cp
	return nil
}

func (r *MockAgentRepo) find(pred func(*model.Agent) bool) (*model.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.data {
		if pred(a) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockAgentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Agent, error) {
	return r.find(func(a *model.Agent) bool { return a.ID == id })
}

func (r *MockAgentRepo) FindByUserID(ctx context.Context, tx repository.Tx, userID string) (*model.Agent, error) {
	return r.find(func(a *model.Agent) bool { return a.UserID == userID })
}

func (r *MockAgentRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Agent, error) {
	return r.find(func(a *model.Agent) bool { return a.AgentCode == code })
}

func (r *MockAgentRepo) NextCodeSequence(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return r.seq, nil
}

func (r *MockAgentRepo) TransitionStatus(ctx context.Context, tx repository.Tx, id string, from, to model.AgentStatus, approvedAt *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.data[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if a.Status != from {
		return false, nil
	}
	a.Status = to
	if approvedAt != nil {
		a.ApprovedAt = approvedAt
	}
	return true, nil
}

func (r *MockAgentRepo) AssignPackage(ctx context.Context, tx repository.Tx, id, packageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.PackageID = &packageID
	return nil
}

func (r *MockAgentRepo) Credit(ctx context.Context, tx repository.Tx, id string, amount decimal.Decimal, counter model.AgentCounter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.TotalEarnings = a.TotalEarnings.Add(amount)
	a.AvailableBalance = a.AvailableBalance.Add(amount)
	switch counter {
	case model.CounterBusinessesActivated:
		a.BusinessesActivated++
	case model.CounterTotalReferrals:
		a.TotalReferrals++
	}
	return nil
}

type MockAgentPackageRepo struct {
	mu   sync.Mutex
	data map[string]*model.AgentPackage
}

var _ repository.AgentPackageRepository = (*MockAgentPackageRepo)(nil)

func NewMockAgentPackageRepo() *MockAgentPackageRepo {
	return &MockAgentPackageRepo{data: map[string]*model.AgentPackage{}}
}

func (r *MockAgentPackageRepo) Save(ctx context.Context, tx repository.Tx, p *model.AgentPackage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.data[p.ID] = &cp
	return nil
}

func (r *MockAgentPackageRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.AgentPackage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockAgentPackageRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.AgentPackage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.AgentPackage
	for _, p := range r.data {
		if p.IsActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Businesses, requests, users ----

type MockBusinessRepo struct {
	mu   sync.Mutex
	data map[string]*model.Business
}

var _ repository.BusinessRepository = (*MockBusinessRepo)(nil)

func NewMockBusinessRepo() *MockBusinessRepo {
	return &MockBusinessRepo{data: map[string]*model.Business{}}
}

func (r *MockBusinessRepo) Save(ctx context.Context, tx repository.Tx, b *model.Business) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.data {
		if x.ID != b.ID && x.OwnerID == b.OwnerID && x.Status != model.BusinessStatusCancelled {
			return domain.ErrAlreadyExists
		}
	}
	cp := *b
	r.data[b.ID] = &cp
	return nil
}

func (r *MockBusinessRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Business, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *MockBusinessRepo) FindLiveByOwner(ctx context.Context, tx repository.Tx, ownerID string) (*model.Business, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.data {
		if b.OwnerID == ownerID && b.Status != model.BusinessStatusCancelled {
			cp := *b
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockBusinessRepo) TransitionStatus(ctx context.Context, tx repository.Tx, id string, from, to model.BusinessStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.data[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if b.Status != from {
		return false, nil
	}
	b.Status = to
	return true, nil
}

func (r *MockBusinessRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}

type MockBusinessRequestRepo struct {
	mu   sync.Mutex
	data map[string]*model.BusinessRequest
}

var _ repository.BusinessRequestRepository = (*MockBusinessRequestRepo)(nil)

func NewMockBusinessRequestRepo() *MockBusinessRequestRepo {
	return &MockBusinessRequestRepo{data: map[string]*model.BusinessRequest{}}
}

func (r *MockBusinessRequestRepo) Save(ctx context.Context, tx repository.Tx, br *model.BusinessRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *br
	r.data[br.ID] = &cp
	return nil
}

func (r *MockBusinessRequestRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.BusinessRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	br, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *br
	return &cp, nil
}

func (r *MockBusinessRequestRepo) ListByAgent(ctx context.Context, tx repository.Tx, agentID string, status *model.BusinessRequestStatus) ([]*model.BusinessRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.BusinessRequest
	for _, br := range r.data {
		if br.AgentID == nil || *br.AgentID != agentID {
			continue
		}
		if status != nil && br.Status != *status {
			continue
		}
		cp := *br
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MockBusinessRequestRepo) SetPayment(ctx context.Context, tx repository.Tx, id, paymentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	br, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	br.PaymentID = &paymentID
	return nil
}

func (r *MockBusinessRequestRepo) TransitionStatus(ctx context.Context, tx repository.Tx, id string, from, to model.BusinessRequestStatus, businessID *string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	br, ok := r.data[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if br.Status != from {
		return false, nil
	}
	br.Status = to
	if businessID != nil {
		br.BusinessID = businessID
	}
	return true, nil
}

type MockUserRepo struct {
	mu   sync.Mutex
	data map[string]*model.User
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo() *MockUserRepo { return &MockUserRepo{data: map[string]*model.User{}} }

func (r *MockUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.data[u.ID] = &cp
	return nil
}

func (r *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *MockUserRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data), nil
}

// ---- Commissions ----

// MockCommissionRepo mirrors the unique index on (agent, business, class).
type MockCommissionRepo struct {
	mu   sync.Mutex
	data []*model.Commission

	// ListByAgentAndBusinessFunc lets a test hide rows from the pre-check
	// to exercise the index path.
	ListByAgentAndBusinessFunc func(ctx context.Context, tx repository.Tx, agentID, businessID string) ([]*model.Commission, error)
}

var _ repository.CommissionRepository = (*MockCommissionRepo)(nil)

func NewMockCommissionRepo() *MockCommissionRepo { return &MockCommissionRepo{} }

func (r *MockCommissionRepo) Insert(ctx context.Context, tx repository.Tx, c *model.Commission) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.data {
		if x.AgentID == c.AgentID && x.BusinessID == c.BusinessID && x.Type.DedupClass() == c.Type.DedupClass() {
			return false, nil
		}
	}
	cp := *c
	r.data = append(r.data, &cp)
	return true, nil
}

func (r *MockCommissionRepo) ListByAgentAndBusiness(ctx context.Context, tx repository.Tx, agentID, businessID string) ([]*model.Commission, error) {
	if r.ListByAgentAndBusinessFunc != nil {
		return r.ListByAgentAndBusinessFunc(ctx, tx, agentID, businessID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Commission
	for _, c := range r.data {
		if c.AgentID == agentID && c.BusinessID == businessID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockCommissionRepo) ListByAgent(ctx context.Context, tx repository.Tx, agentID string, limit, offset int) ([]*model.Commission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Commission
	for _, c := range r.data {
		if c.AgentID == agentID {
			cp := *c
			out = append(out, &cp)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Count returns how many commissions of typ's class exist for the pair.
func (r *MockCommissionRepo) Count(agentID, businessID string, typ model.CommissionType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.data {
		if c.AgentID == agentID && c.BusinessID == businessID && c.Type.DedupClass() == typ.DedupClass() {
			n++
		}
	}
	return n
}

func (r *MockCommissionRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}

// ---- Subscriptions & plans ----

type MockSubscriptionRepo struct {
	mu   sync.Mutex
	data map[string]*model.Subscription
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{data: map[string]*model.Subscription{}}
}

func (r *MockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.data[s.ID] = &cp
	return nil
}

func (r *MockSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *MockSubscriptionRepo) FindByBusiness(ctx context.Context, tx repository.Tx, businessID string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.data {
		if s.BusinessID == businessID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockSubscriptionRepo) ListLapsed(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Subscription
	for _, s := range r.data {
		live := s.Status == model.SubscriptionStatusActive || s.Status == model.SubscriptionStatusGrace
		if live && s.EndDate != nil && s.EndDate.Before(now) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockSubscriptionRepo) ListExpiring(ctx context.Context, tx repository.Tx, now time.Time, within time.Duration, limit int) ([]*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Subscription
	for _, s := range r.data {
		if s.Status == model.SubscriptionStatusActive && s.EndDate != nil && s.EndDate.After(now) && !s.EndDate.After(now.Add(within)) {
			cp := *s
			out = append(out, &cp)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockSubscriptionRepo) TransitionStatus(ctx context.Context, tx repository.Tx, id string, from, to model.SubscriptionStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if s.Status != from {
		return false, nil
	}
	s.Status = to
	return true, nil
}

type MockPlanRepo struct {
	mu   sync.Mutex
	data map[string]*model.SubscriptionPlan
}

var _ repository.SubscriptionPlanRepository = (*MockPlanRepo)(nil)

func NewMockPlanRepo() *MockPlanRepo {
	return &MockPlanRepo{data: map[string]*model.SubscriptionPlan{}}
}

func (r *MockPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.SubscriptionPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.data[p.ID] = &cp
	return nil
}

func (r *MockPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockPlanRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.SubscriptionPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.SubscriptionPlan
	for _, p := range r.data {
		if p.IsActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Promotions ----

type MockPromotionRepo struct {
	mu   sync.Mutex
	data map[string]*model.Promotion
}

var _ repository.PromotionRepository = (*MockPromotionRepo)(nil)

func NewMockPromotionRepo() *MockPromotionRepo {
	return &MockPromotionRepo{data: map[string]*model.Promotion{}}
}

func (r *MockPromotionRepo) Save(ctx context.Context, tx repository.Tx, p *model.Promotion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.data[p.ID] = &cp
	return nil
}

func (r *MockPromotionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Promotion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockPromotionRepo) FindByPaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.Promotion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.data {
		if p.PaymentID != nil && *p.PaymentID == paymentID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockPromotionRepo) SetPayment(ctx context.Context, tx repository.Tx, id, paymentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.PaymentID = &paymentID
	return nil
}

func (r *MockPromotionRepo) TransitionStatus(ctx context.Context, tx repository.Tx, id string, from, to model.PromotionStatus, markPaid bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if p.Status != from {
		return false, nil
	}
	p.Status = to
	if markPaid {
		p.IsPaid = true
	}
	return true, nil
}

func (r *MockPromotionRepo) ListEnded(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.Promotion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Promotion
	for _, p := range r.data {
		live := p.Status == model.PromotionStatusActive || p.Status == model.PromotionStatusPaused
		if live && p.EndDate.Before(now) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Coins, wallets, orders ----

type MockCoinPackageRepo struct {
	mu   sync.Mutex
	data map[string]*model.CoinPackage
}

var _ repository.CoinPackageRepository = (*MockCoinPackageRepo)(nil)

func NewMockCoinPackageRepo() *MockCoinPackageRepo {
	return &MockCoinPackageRepo{data: map[string]*model.CoinPackage{}}
}

func (r *MockCoinPackageRepo) Save(ctx context.Context, tx repository.Tx, p *model.CoinPackage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.data[p.ID] = &cp
	return nil
}

func (r *MockCoinPackageRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.CoinPackage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockCoinPackageRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.CoinPackage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.CoinPackage
	for _, p := range r.data {
		if p.IsActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

type MockWalletRepo struct {
	mu       sync.Mutex
	balances map[string]int64
	credited map[string]bool // payment id
}

var _ repository.WalletRepository = (*MockWalletRepo)(nil)

func NewMockWalletRepo() *MockWalletRepo {
	return &MockWalletRepo{balances: map[string]int64{}, credited: map[string]bool{}}
}

func (r *MockWalletRepo) CreditOnce(ctx context.Context, tx repository.Tx, userID, paymentID string, coins int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.credited[paymentID] {
		return false, nil
	}
	r.credited[paymentID] = true
	r.balances[userID] += coins
	return true, nil
}

func (r *MockWalletRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bal, ok := r.balances[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &model.Wallet{UserID: userID, CoinBalance: bal, UpdatedAt: time.Now()}, nil
}

type MockOrderRepo struct {
	mu   sync.Mutex
	data map[string]*model.Order
}

var _ repository.OrderRepository = (*MockOrderRepo)(nil)

func NewMockOrderRepo() *MockOrderRepo { return &MockOrderRepo{data: map[string]*model.Order{}} }

func (r *MockOrderRepo) Save(ctx context.Context, tx repository.Tx, o *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.data[o.ID] = &cp
	return nil
}

func (r *MockOrderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *MockOrderRepo) SetPayment(ctx context.Context, tx repository.Tx, id, paymentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.PaymentID = &paymentID
	return nil
}

func (r *MockOrderRepo) MarkPaid(ctx context.Context, tx repository.Tx, id string, paidAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.data[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if o.Status != model.OrderStatusPendingPayment {
		return false, nil
	}
	o.Status = model.OrderStatusPaid
	o.PaidAt = &paidAt
	return true, nil
}
