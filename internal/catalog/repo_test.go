package catalog

import (
	"context"
	"testing"

	"github.com/angelmondragon/gigescrow-backend/pkg/db/dbtest"
	"github.com/angelmondragon/gigescrow-backend/pkg/db/models"
	"github.com/angelmondragon/gigescrow-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryFindApprovedAndCounters(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	seller := dbtest.User(t, conn, enums.UserRoleSeller, "0")

	approved := dbtest.Service(t, conn, seller.ID, "100", "")
	pending := dbtest.Service(t, conn, seller.ID, "50", "")
	require.NoError(t, conn.Model(&models.Service{}).Where("id = ?", pending.ID).
		UpdateColumn("approval_status", enums.ServiceApprovalPending).Error)

	found, err := repo.FindApprovedByIDs(ctx, []uuid.UUID{approved.ID, pending.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Contains(t, found, approved.ID)

	require.NoError(t, repo.IncrementPurchases(ctx, approved.ID))
	require.NoError(t, repo.IncrementPurchases(ctx, approved.ID))

	got, err := repo.FindByID(ctx, approved.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Purchases)
}
