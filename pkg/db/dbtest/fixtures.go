package dbtest

import (
	"fmt"
	"testing"

	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User inserts a user with the given role and wallet balance.
func User(t *testing.T, db *gorm.DB, role enums.UserRole, wallet string) *models.User {
	t.Helper()
	id := uuid.New()
	user := &models.User{
		ID:          id,
		Email:       fmt.Sprintf("%s@example.test", id),
		Name:        string(role),
		Role:        role,
		Wallet:      decimal.RequireFromString(wallet),
		SellerLevel: enums.SellerLevelNew,
	}
	Create(t, db, user)
	return user
}

// Service inserts an approved catalog service. packages may be empty.
func Service(t *testing.T, db *gorm.DB, sellerID uuid.UUID, price string, packages string) *models.Service {
	t.Helper()
	svc := &models.Service{
		ID:             uuid.New(),
		SellerID:       sellerID,
		Title:          "service " + price,
		Category:       "Design",
		Price:          decimal.RequireFromString(price),
		ApprovalStatus: enums.ServiceApprovalApproved,
	}
	if packages != "" {
		svc.Packages = datatypes.JSON(packages)
	}
	Create(t, db, svc)
	return svc
}

// Create inserts value and fails the test on error.
func Create(t *testing.T, db *gorm.DB, value any) {
	t.Helper()
	if err := db.Create(value).Error; err != nil {
		t.Fatalf("seed %T: %v", value, err)
	}
}

// Order inserts a paid single-package order at a 10% fee with escrow held.
func Order(t *testing.T, db *gorm.DB, buyerID, sellerID, serviceID uuid.UUID, status enums.OrderStatus, amount, escrow, commission string) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:                 uuid.New(),
		BuyerID:            buyerID,
		SellerID:           sellerID,
		ServiceID:          serviceID,
		Amount:             decimal.RequireFromString(amount),
		PackageType:        enums.PackageTypeSingle,
		Status:             status,
		PaymentStatus:      enums.PaymentStatusPaid,
		EscrowStatus:       enums.EscrowStatusHeld,
		EscrowAmount:       decimal.RequireFromString(escrow),
		CommissionAmount:   decimal.RequireFromString(commission),
		PlatformFeePercent: decimal.NewFromInt(10),
	}
	Create(t, db, order)
	return order
}

// Milestone inserts a pending milestone on orderID.
func Milestone(t *testing.T, db *gorm.DB, orderID uuid.UUID, position int, amount string) *models.Milestone {
	t.Helper()
	m := &models.Milestone{
		ID:       uuid.New(),
		OrderID:  orderID,
		Title:    fmt.Sprintf("milestone %d", position+1),
		Amount:   decimal.RequireFromString(amount),
		Position: position,
		Status:   enums.MilestoneStatusPending,
	}
	Create(t, db, m)
	return m
}

// Review inserts a rating for serviceID.
func Review(t *testing.T, db *gorm.DB, userID, serviceID uuid.UUID, rating int) *models.Review {
	t.Helper()
	r := &models.Review{ID: uuid.New(), UserID: userID, ServiceID: serviceID, Rating: rating}
	Create(t, db, r)
	return r
}

// Dispute inserts a dispute in the given status.
func Dispute(t *testing.T, db *gorm.DB, orderID, raisedByID uuid.UUID, status enums.DisputeStatus) *models.Dispute {
	t.Helper()
	d := &models.Dispute{
		ID:            uuid.New(),
		OrderID:       orderID,
		RaisedByID:    raisedByID,
		Reason:        "not delivered",
		Status:        status,
		AdminDecision: enums.DisputeDecisionNone,
	}
	Create(t, db, d)
	return d
}
