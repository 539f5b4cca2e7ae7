package usecase

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/repository"
	"marketplace-payments/internal/infra/logging"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

// UserUseCase exposes the account operations the payment flows depend on.
type UserUseCase interface {
	// RegisterOrFetch creates the user on first sight. The referral code is
	// only recorded at creation and only when it names a known agent.
	RegisterOrFetch(ctx context.Context, id, name, phone string, referralCode *string) (*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
	Count(ctx context.Context) (int, error)
}

type userUC struct {
	users  repository.UserRepository
	agents repository.AgentRepository
	tm     repository.TransactionManager
	log    *zerolog.Logger
}

func NewUserUseCase(users repository.UserRepository, agents repository.AgentRepository, tm repository.TransactionManager, logger *zerolog.Logger) *userUC {
	l := logger.With().Str("component", "UserUseCase").Logger()
	return &userUC{
		users:  users,
		agents: agents,
		tm:     tm,
		log:    &l,
	}
}

func (u *userUC) RegisterOrFetch(ctx context.Context, id, name, phone string, referralCode *string) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUseCase.RegisterOrFetch")()

	var user *model.User
	txOpts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		existing, err := u.users.FindByID(ctx, tx, id)
		if err == nil {
			user = existing
			return nil
		}
		if !isNotFound(err) {
			return err
		}

		code := u.knownReferral(ctx, tx, referralCode)
		nu, err := model.NewUser(id, name, phone, code)
		if err != nil {
			return err
		}
		if err := u.users.Save(ctx, tx, nu); err != nil {
			return err
		}
		user = nu
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// knownReferral normalises the code and drops it unless an agent owns it.
func (u *userUC) knownReferral(ctx context.Context, tx repository.Tx, code *string) *string {
	if code == nil {
		return nil
	}
	c := strings.ToUpper(strings.TrimSpace(*code))
	if c == "" {
		return nil
	}
	if _, err := u.agents.FindByCode(ctx, tx, c); err != nil {
		u.log.Info().Err(err).Str("referral_code", c).Msg("ignoring unknown referral code")
		return nil
	}
	return &c
}

func (u *userUC) Get(ctx context.Context, id string) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUseCase.Get")()
	return u.users.FindByID(ctx, repository.NoTX, id)
}

func (u *userUC) Count(ctx context.Context) (int, error) {
	defer logging.TraceDuration(u.log, "UserUseCase.Count")()
	return u.users.CountUsers(ctx, repository.NoTX)
}
