package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/angelmondragon/gigescrow-backend/internal/authz"
	"github.com/angelmondragon/gigescrow-backend/internal/catalog"
	"github.com/angelmondragon/gigescrow-backend/internal/notifications"
	"github.com/angelmondragon/gigescrow-backend/internal/reputation"
	dbpkg "github.com/angelmondragon/gigescrow-backend/pkg/db"
	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/gigescrow-backend/pkg/errors"
	"github.com/angelmondragon/gigescrow-backend/pkg/logger"
	"github.com/angelmondragon/gigescrow-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const maxCommentLength = 1000

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type notifier interface {
	Notify(ctx context.Context, tx *gorm.DB, req notifications.Request) error
}

type reputationRecomputer interface {
	Recompute(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID) (*reputation.Snapshot, error)
}

// SubmitInput is a buyer's rating of a purchased service.
type SubmitInput struct {
	ServiceID uuid.UUID
	Rating    int
	Comment   string
}

// ReviewDTO is the transport shape of a review.
type ReviewDTO struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	ServiceID uuid.UUID `json:"service_id"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SubmitResult carries the stored review and the refreshed service rating.
type SubmitResult struct {
	Review        ReviewDTO       `json:"review"`
	ServiceRating decimal.Decimal `json:"service_rating"`
	RatingCount   int             `json:"rating_count"`
}

// ReviewList wraps a page of reviews.
type ReviewList struct {
	Reviews []ReviewDTO `json:"reviews"`
	Cursor  string      `json:"cursor"`
}

// Service accepts reviews and keeps service ratings and seller reputation in
// step with them.
type Service interface {
	Submit(ctx context.Context, actor authz.Actor, input SubmitInput) (*SubmitResult, error)
	ListForService(ctx context.Context, serviceID uuid.UUID, params pagination.Params) (*ReviewList, error)
}

// ServiceParams wires the reviews service.
type ServiceParams struct {
	Repo       Repository
	Catalog    catalog.Repository
	Tx         txRunner
	Notifier   notifier
	Reputation reputationRecomputer
	Logger     *logger.Logger
}

type service struct {
	repo       Repository
	catalog    catalog.Repository
	tx         txRunner
	notifier   notifier
	reputation reputationRecomputer
	logg       *logger.Logger
}

// NewService builds the review service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "reviews repository required")
	case params.Catalog == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog repository required")
	case params.Tx == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	case params.Notifier == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier required")
	case params.Reputation == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "reputation service required")
	}
	return &service{
		repo:       params.Repo,
		catalog:    params.Catalog,
		tx:         params.Tx,
		notifier:   params.Notifier,
		reputation: params.Reputation,
		logg:       params.Logger,
	}, nil
}

func (s *service) Submit(ctx context.Context, actor authz.Actor, input SubmitInput) (*SubmitResult, error) {
	if err := authz.RequireRole(actor, enums.UserRoleBuyer); err != nil {
		return nil, err
	}
	if input.ServiceID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "service id required")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	comment := strings.TrimSpace(input.Comment)
	if utf8.RuneCountInString(comment) > maxCommentLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "comment too long")
	}

	var result SubmitResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		catalogRepo := s.catalog.WithTx(tx)
		svc, err := catalogRepo.FindByID(ctx, input.ServiceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "service not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load service")
		}

		repo := s.repo.WithTx(tx)
		purchased, err := repo.HasCompletedPurchase(ctx, actor.UserID, svc.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check purchase")
		}
		if !purchased {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only buyers with a completed order can review this service").
				WithReason(pkgerrors.ReasonCompletedPurchaseRequired)
		}

		review := &models.Review{
			ID:        uuid.New(),
			UserID:    actor.UserID,
			ServiceID: svc.ID,
			Rating:    input.Rating,
		}
		if comment != "" {
			review.Comment = &comment
		}
		if err := repo.Create(ctx, review); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "service already reviewed").
					WithReason(pkgerrors.ReasonReviewExists)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
		}

		stats, err := repo.RatingStats(ctx, svc.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate ratings")
		}
		rating := stats.Average.Round(2)
		if err := catalogRepo.UpdateRating(ctx, svc.ID, rating, int(stats.Count)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update service rating")
		}

		if _, err := s.reputation.Recompute(ctx, tx, svc.SellerID); err != nil {
			return err
		}

		if err := s.notifier.Notify(ctx, tx, notifications.Request{
			UserID:  svc.SellerID,
			Type:    enums.NotificationTypeReviewAdded,
			Title:   "New Review",
			Message: fmt.Sprintf("Your service %q received a %d-star review.", svc.Title, input.Rating),
			Meta:    map[string]any{"serviceId": svc.ID.String(), "reviewId": review.ID.String(), "rating": input.Rating},
		}); err != nil {
			return err
		}

		result = SubmitResult{Review: toDTO(*review), ServiceRating: rating, RatingCount: int(stats.Count)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithUserID(ctx, actor.UserID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"service_id": input.ServiceID.String(),
			"rating":     input.Rating,
		})
		s.logg.Info(logCtx, "review submitted")
	}
	return &result, nil
}

func (s *service) ListForService(ctx context.Context, serviceID uuid.UUID, params pagination.Params) (*ReviewList, error) {
	var cursor *pagination.Cursor
	if params.Cursor != "" {
		parsed, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		cursor = parsed
	}
	rows, next, err := s.repo.ListByService(ctx, serviceID, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	list := &ReviewList{Reviews: make([]ReviewDTO, 0, len(rows))}
	for _, row := range rows {
		list.Reviews = append(list.Reviews, toDTO(row))
	}
	if next != nil {
		list.Cursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

func toDTO(row models.Review) ReviewDTO {
	return ReviewDTO{
		ID:        row.ID,
		UserID:    row.UserID,
		ServiceID: row.ServiceID,
		Rating:    row.Rating,
		Comment:   row.Comment,
		CreatedAt: row.CreatedAt,
	}
}
