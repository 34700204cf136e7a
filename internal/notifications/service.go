package notifications

import (
	"context"
	"time"

	"github.com/angelmondragon/gigescrow-backend/internal/authz"
	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/gigescrow-backend/pkg/errors"
	"github.com/angelmondragon/gigescrow-backend/pkg/pagination"
	"github.com/google/uuid"
)

// Service is the recipient-facing inbox.
type Service interface {
	List(ctx context.Context, actor authz.Actor, params ListParams) (*Inbox, error)
	MarkRead(ctx context.Context, actor authz.Actor, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, actor authz.Actor) (int64, error)
}

type ListParams struct {
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// Inbox is one page of notifications plus the recipient's unread total,
// which ignores paging and the unread filter.
type Inbox struct {
	Items       []models.Notification `json:"items"`
	UnreadCount int64                 `json:"unreadCount"`
	Cursor      string                `json:"cursor"`
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds the inbox service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) List(ctx context.Context, actor authz.Actor, params ListParams) (*Inbox, error) {
	if err := authz.Authenticated(actor); err != nil {
		return nil, err
	}
	query := listQuery{UserID: actor.UserID, Limit: params.Limit, UnreadOnly: params.UnreadOnly}
	if params.Cursor != "" {
		after, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.After = after
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	unread, err := s.repo.CountUnread(ctx, actor.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}

	inbox := &Inbox{Items: rows, UnreadCount: unread}
	if inbox.Items == nil {
		inbox.Items = []models.Notification{}
	}
	if next != nil {
		inbox.Cursor = pagination.EncodeCursor(*next)
	}
	return inbox, nil
}

// MarkRead is idempotent; a notification owned by someone else reads as
// missing.
func (s *service) MarkRead(ctx context.Context, actor authz.Actor, notificationID uuid.UUID) error {
	if err := authz.Authenticated(actor); err != nil {
		return err
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	found, err := s.repo.MarkRead(ctx, actor.UserID, notificationID, s.now())
	switch {
	case err != nil:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	case !found:
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, actor authz.Actor) (int64, error) {
	if err := authz.Authenticated(actor); err != nil {
		return 0, err
	}
	updated, err := s.repo.MarkAllRead(ctx, actor.UserID, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return updated, nil
}
