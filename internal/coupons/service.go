package coupons

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/gigescrow-backend/internal/authz"
	"github.com/angelmondragon/gigescrow-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/gigescrow-backend/pkg/errors"
	"github.com/angelmondragon/gigescrow-backend/pkg/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service evaluates and redeems coupons. Evaluate has no side effects;
// Redeem must run in the same transaction that consumes the discount.
type Service interface {
	Evaluate(ctx context.Context, tx *gorm.DB, code string, base decimal.Decimal) (*Evaluation, error)
	Redeem(ctx context.Context, tx *gorm.DB, couponID uuid.UUID) error
	Preview(ctx context.Context, actor authz.Actor, code string, amount decimal.Decimal) (*PreviewDTO, error)
	Create(ctx context.Context, actor authz.Actor, input CreateInput) (*CouponDTO, error)
	List(ctx context.Context, actor authz.Actor) ([]CouponDTO, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires the coupon evaluator.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "coupons repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

// NormalizeCode trims and upper-cases a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *service) Evaluate(ctx context.Context, tx *gorm.DB, code string, base decimal.Decimal) (*Evaluation, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, invalidCoupon()
	}
	if base.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount cannot be negative")
	}

	coupon, err := s.repo.WithTx(tx).FindByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalidCoupon()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	if err := Check(coupon, s.now()); err != nil {
		return nil, err
	}
	return Apply(coupon, base), nil
}

func (s *service) Redeem(ctx context.Context, tx *gorm.DB, couponID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "coupon redemption requires a transaction")
	}
	ok, err := s.repo.WithTx(tx).IncrementUsage(ctx, couponID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redeem coupon")
	}
	if !ok {
		return exhausted()
	}
	return nil
}

func (s *service) Preview(ctx context.Context, actor authz.Actor, code string, amount decimal.Decimal) (*PreviewDTO, error) {
	if err := authz.Authenticated(actor); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	eval, err := s.Evaluate(ctx, nil, code, money.Round2(amount))
	if err != nil {
		return nil, err
	}
	return &PreviewDTO{
		Code:        eval.Coupon.Code,
		Amount:      money.Round2(amount),
		Discount:    eval.Discount,
		FinalAmount: eval.FinalAmount,
	}, nil
}

func (s *service) Create(ctx context.Context, actor authz.Actor, input CreateInput) (*CouponDTO, error) {
	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	coupon, err := input.toModel()
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, coupon); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon code already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create coupon")
	}
	return FromModel(coupon), nil
}

func (s *service) List(ctx context.Context, actor authz.Actor) ([]CouponDTO, error) {
	if err := authz.RequireAdmin(actor); err != nil {
		return nil, err
	}
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list coupons")
	}
	out := make([]CouponDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func invalidCoupon() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found").
		WithReason(pkgerrors.ReasonInvalidCoupon)
}
