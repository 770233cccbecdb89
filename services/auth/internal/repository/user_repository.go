package repository

import (
	"context"

	"github.com/diagnosis/luxsuv-reservations/pkg/docstore"
	store "github.com/diagnosis/luxsuv-reservations/pkg/repository"
	"github.com/diagnosis/luxsuv-reservations/services/auth/internal/domain"
)

// UserRepository is the credential store. Lookups that match nothing fail
// with store.ErrNotFound.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}

type userRepository struct {
	docs *store.Repository[domain.User, *domain.User]
}

func NewUserRepository(coll docstore.Collection, opts ...store.Option) UserRepository {
	return &userRepository{docs: store.New[domain.User](coll, opts...)}
}

func (r *userRepository) Create(ctx context.Context, user domain.User) (*domain.User, error) {
	return r.docs.Create(ctx, user)
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.docs.FindOne(ctx, store.Filter{"email": email})
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.docs.FindOne(ctx, store.ByID(id))
}

func (r *userRepository) List(ctx context.Context) ([]domain.User, error) {
	return r.docs.Find(ctx, store.Filter{})
}
