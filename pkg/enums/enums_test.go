package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusLifecycleIsForwardOnly(t *testing.T) {
	allowed := map[[2]OrderStatus]bool{
		{OrderStatusPending, OrderStatusAccepted}:   true,
		{OrderStatusAccepted, OrderStatusCompleted}: true,
	}
	all := []OrderStatus{OrderStatusPending, OrderStatusAccepted, OrderStatusCompleted}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]OrderStatus{from, to}], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestDisputeStatusPartitions(t *testing.T) {
	for _, s := range []DisputeStatus{DisputeStatusOpen, DisputeStatusUnderReview} {
		assert.True(t, s.IsActive(), s)
		assert.False(t, s.IsTerminal(), s)
	}
	for _, s := range []DisputeStatus{DisputeStatusResolved, DisputeStatusRejected} {
		assert.False(t, s.IsActive(), s)
		assert.True(t, s.IsTerminal(), s)
	}
}

func TestParseRejectsUnknownAndCaseVariants(t *testing.T) {
	_, err := ParseOrderStatus("Completed")
	assert.Error(t, err)
	_, err = ParsePackageType("platinum")
	assert.Error(t, err)
	_, err = ParseUserRole("")
	assert.Error(t, err)

	role, err := ParseUserRole("seller")
	require.NoError(t, err)
	assert.Equal(t, UserRoleSeller, role)
}

func TestPaymentStatusCapture(t *testing.T) {
	paid, err := ParsePaymentStatus("paid")
	require.NoError(t, err)
	assert.True(t, paid.Captured())
	assert.False(t, PaymentStatusPending.Captured())
	_, err = ParsePaymentStatus("refunded")
	assert.Error(t, err)
}

func TestDLQReasonReplayable(t *testing.T) {
	reason, err := ParseOutboxDLQErrorReason("max_attempts")
	require.NoError(t, err)
	assert.True(t, reason.Replayable())
	assert.False(t, OutboxDLQReasonNonRetryable.Replayable())
	assert.False(t, OutboxDLQReasonUndecodable.Replayable())
	assert.False(t, OutboxDLQErrorReason("other").IsValid())
}

func TestOutboxKindsMatchStoredEnums(t *testing.T) {
	event, err := ParseOutboxEventType("escrow_refunded")
	require.NoError(t, err)
	assert.Equal(t, EventEscrowRefunded, event)
	_, err = ParseOutboxEventType("license_expired")
	assert.Error(t, err)

	aggregate, err := ParseOutboxAggregateType("notification")
	require.NoError(t, err)
	assert.Equal(t, AggregateNotification, aggregate)
	_, err = ParseOutboxAggregateType("vendor_order")
	assert.Error(t, err)
}
