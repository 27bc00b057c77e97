package repository

import (
	"context"

	"explorafit-server/internal/domain"
)

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) (int64, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	// DebitCredit atomically decrements the balance if it is positive.
	// It is the only decrement path; a zero balance returns
	// domain.ErrInsufficientCredits and leaves the row untouched.
	DebitCredit(ctx context.Context, id int64) error
	// RefundCredit restores one credit. Used only to compensate a debit
	// whose follow-up route insert failed.
	RefundCredit(ctx context.Context, id int64) error
}
