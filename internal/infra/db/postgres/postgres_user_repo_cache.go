package postgres

import (
	"context"

	"marketplace-payments/internal/domain/model"
	"marketplace-payments/internal/domain/ports/repository"
	red "marketplace-payments/internal/infra/redis"
)

var _ repository.UserRepository = (*userRepoCacheDecorator)(nil)

// userRepoCacheDecorator caches profiles by id. The commission engine reads
// the referral code of every paying owner, so misses are the hot path.
type userRepoCacheDecorator struct {
	inner repository.UserRepository
	users readThrough[*model.User]
}

func NewUserRepoCacheDecorator(inner repository.UserRepository, cache red.RedisClient) repository.UserRepository {
	return &userRepoCacheDecorator{
		inner: inner,
		users: readThrough[*model.User]{cache: cache, entity: "user", ttl: defaultCacheTTL},
	}
}

func userKey(id string) string { return "user:id:" + id }

func (d *userRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	if err := d.inner.Save(ctx, tx, u); err != nil {
		return err
	}
	d.users.invalidate(ctx, userKey(u.ID))
	return nil
}

func (d *userRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	return d.users.get(ctx, tx, userKey(id), func() (*model.User, error) {
		return d.inner.FindByID(ctx, tx, id)
	})
}

func (d *userRepoCacheDecorator) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	return d.inner.CountUsers(ctx, tx)
}
