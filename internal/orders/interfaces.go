package orders

import (
	"context"
	"time"

	"github.com/angelmondragon/gigescrow-backend/internal/notifications"
	"github.com/angelmondragon/gigescrow-backend/internal/reputation"
	"github.com/angelmondragon/gigescrow-backend/internal/wallet"
	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	"github.com/angelmondragon/gigescrow-backend/pkg/outbox"
	"github.com/angelmondragon/gigescrow-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for orders and milestones.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateMilestones(ctx context.Context, milestones []models.Milestone) error
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	LockOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	LockMilestone(ctx context.Context, orderID, milestoneID uuid.UUID) (*models.Milestone, error)
	CountIncompleteMilestones(ctx context.Context, orderID uuid.UUID) (int64, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error
	CompleteMilestone(ctx context.Context, id uuid.UUID, at time.Time) error
	List(ctx context.Context, params listParams) ([]models.Order, *pagination.Cursor, error)
	SellerStats(ctx context.Context, sellerID uuid.UUID) (sellerStats, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type ledger interface {
	Credit(ctx context.Context, tx *gorm.DB, movement wallet.Movement) (*models.WalletTransaction, error)
}

type notifier interface {
	Notify(ctx context.Context, tx *gorm.DB, req notifications.Request) error
}

type reputationRecomputer interface {
	Recompute(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID) (*reputation.Snapshot, error)
}
