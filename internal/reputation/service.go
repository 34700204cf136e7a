package reputation

import (
	"context"
	"errors"

	"github.com/angelmondragon/gigescrow-backend/internal/users"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigescrow-backend/pkg/errors"
	"github.com/angelmondragon/gigescrow-backend/pkg/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Snapshot is a seller's trust score, tier and the aggregates behind them.
type Snapshot struct {
	SellerID        uuid.UUID         `json:"seller_id"`
	Score           decimal.Decimal   `json:"reputation_score"`
	Level           enums.SellerLevel `json:"seller_level"`
	CompletedOrders int64             `json:"completed_orders"`
	Revenue         decimal.Decimal   `json:"revenue"`
	AverageRating   decimal.Decimal   `json:"average_rating"`
	Disputes        int64             `json:"dispute_count"`
}

// Service recomputes seller reputation after completions, disputes and
// reviews.
type Service interface {
	// Recompute writes reputation_score and seller_level inside tx.
	Recompute(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID) (*Snapshot, error)
	// Snapshot returns the stored score and level with live aggregates.
	Snapshot(ctx context.Context, sellerID uuid.UUID) (*Snapshot, error)
}

type service struct {
	repo  Repository
	users *users.Repository
}

// NewService builds the reputation service.
func NewService(repo Repository, usersRepo *users.Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "reputation repository required")
	}
	if usersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	return &service{repo: repo, users: usersRepo}, nil
}

func (s *service) Recompute(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID) (*Snapshot, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	in, err := s.repo.WithTx(tx).Inputs(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate seller reputation")
	}
	snap := snapshotFrom(sellerID, in)
	if err := s.users.WithTx(tx).UpdateReputation(ctx, sellerID, snap.Score, snap.Level); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update seller reputation")
	}
	return snap, nil
}

func (s *service) Snapshot(ctx context.Context, sellerID uuid.UUID) (*Snapshot, error) {
	seller, err := s.users.FindByID(ctx, sellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller")
	}
	if seller.Role != enums.UserRoleSeller {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
	}
	in, err := s.repo.Inputs(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate seller reputation")
	}
	snap := snapshotFrom(sellerID, in)
	snap.Score = seller.ReputationScore
	snap.Level = seller.SellerLevel
	return snap, nil
}

func snapshotFrom(sellerID uuid.UUID, in Inputs) *Snapshot {
	return &Snapshot{
		SellerID:        sellerID,
		Score:           Score(in),
		Level:           Tier(in),
		CompletedOrders: in.CompletedOrders,
		Revenue:         money.Round2(in.Revenue),
		AverageRating:   money.Round2(in.AverageRating),
		Disputes:        in.Disputes,
	}
}
