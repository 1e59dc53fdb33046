package order

import (
	"context"
	"errors"
	"testing"

	"aurum/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithdrawCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("reserves the amount and opens a pending order", func(t *testing.T) {
		repo := newFakeOrderRepo()
		mutator := newFakeMutator()
		m := NewWithdrawManager(repo, mutator, Config{})

		o, err := m.Create(ctx, CreateWithdrawParams{UserID: 1, Amount: 1000, Destination: "iban-1"})
		require.NoError(t, err)
		assert.Equal(t, models.WithdrawStatusPending, o.Status)
		assert.Equal(t, int64(1000), mutator.outstanding(o.OrderNo))
		assert.Equal(t, int64(10), o.Fee) // default 100 bps
		assert.Equal(t, int64(990), o.NetAmount)
	})

	t.Run("failed insert releases the reservation", func(t *testing.T) {
		repo := newFakeOrderRepo()
		mutator := newFakeMutator()
		m := NewWithdrawManager(repo, mutator, Config{})
		repo.createErr = errors.New("db down")

		_, err := m.Create(ctx, CreateWithdrawParams{UserID: 1, Amount: 1000, Destination: "iban-1"})
		require.Error(t, err)
		assert.Len(t, mutator.released, 1)
	})

	t.Run("reservation failure aborts creation", func(t *testing.T) {
		mutator := newFakeMutator()
		mutator.reserveErr = errors.New("insufficient funds")
		m := NewWithdrawManager(newFakeOrderRepo(), mutator, Config{})

		_, err := m.Create(ctx, CreateWithdrawParams{UserID: 1, Amount: 1000, Destination: "iban-1"})
		require.Error(t, err)
	})

	t.Run("validates input", func(t *testing.T) {
		m := NewWithdrawManager(newFakeOrderRepo(), newFakeMutator(), Config{})
		_, err := m.Create(ctx, CreateWithdrawParams{UserID: 1, Amount: 0, Destination: "iban-1"})
		assert.ErrorIs(t, err, ErrInvalidAmount)
		_, err = m.Create(ctx, CreateWithdrawParams{UserID: 1, Amount: 100})
		assert.Error(t, err)
	})
}

func TestWithdrawLifecycle(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*fakeOrderRepo, *fakeMutator, *WithdrawManager, *models.WithdrawOrder) {
		repo := newFakeOrderRepo()
		mutator := newFakeMutator()
		m := NewWithdrawManager(repo, mutator, Config{})
		o, err := m.Create(ctx, CreateWithdrawParams{UserID: 1, Amount: 1000, Destination: "iban-1"})
		require.NoError(t, err)
		return repo, mutator, m, o
	}

	t.Run("approve, process, complete settles once", func(t *testing.T) {
		_, mutator, m, o := setup(t)

		approved, err := m.Approve(ctx, o.OrderNo, 9)
		require.NoError(t, err)
		assert.Equal(t, models.WithdrawStatusApproved, approved.Status)
		require.NotNil(t, approved.ReviewerID)
		assert.Equal(t, uint(9), *approved.ReviewerID)

		processing, err := m.MarkProcessing(ctx, o.OrderNo)
		require.NoError(t, err)
		assert.Equal(t, models.WithdrawStatusProcessing, processing.Status)

		completed, err := m.Complete(ctx, o.OrderNo, "payout-1")
		require.NoError(t, err)
		assert.Equal(t, models.WithdrawStatusCompleted, completed.Status)
		assert.Equal(t, "payout-1", completed.ExternalRef)
		assert.Equal(t, int64(0), mutator.outstanding(o.OrderNo))
		assert.Len(t, mutator.settled, 1)
	})

	t.Run("complete works straight from approved", func(t *testing.T) {
		_, mutator, m, o := setup(t)
		_, err := m.Approve(ctx, o.OrderNo, 9)
		require.NoError(t, err)

		completed, err := m.Complete(ctx, o.OrderNo, "payout-1")
		require.NoError(t, err)
		assert.Equal(t, models.WithdrawStatusCompleted, completed.Status)
		assert.Len(t, mutator.settled, 1)
	})

	t.Run("re-resolving a resolved order is a no-op", func(t *testing.T) {
		_, mutator, m, o := setup(t)
		_, err := m.Approve(ctx, o.OrderNo, 9)
		require.NoError(t, err)
		_, err = m.Complete(ctx, o.OrderNo, "payout-1")
		require.NoError(t, err)

		again, err := m.Complete(ctx, o.OrderNo, "payout-1")
		require.NoError(t, err)
		assert.Equal(t, models.WithdrawStatusCompleted, again.Status)
		assert.Len(t, mutator.settled, 1, "settlement must not repeat")

		cancelled, err := m.Cancel(ctx, o.OrderNo, 1)
		require.NoError(t, err)
		assert.Equal(t, models.WithdrawStatusCompleted, cancelled.Status)
		assert.Empty(t, mutator.released)
	})

	t.Run("replay heals a crash between status flip and settlement", func(t *testing.T) {
		// Flipped to completed but the settlement never happened: the process
		// died in between, stranding the reservation in the frozen pool. The
		// replayed Complete must still run the order-keyed settlement.
		repo, mutator, m, o := setup(t)
		_, err := m.Approve(ctx, o.OrderNo, 9)
		require.NoError(t, err)
		repo.setWithdrawStatus(o.OrderNo, models.WithdrawStatusCompleted)

		completed, err := m.Complete(ctx, o.OrderNo, "payout-1")
		require.NoError(t, err)
		assert.Equal(t, models.WithdrawStatusCompleted, completed.Status)
		assert.Len(t, mutator.settled, 1)
		assert.Equal(t, int64(0), mutator.outstanding(o.OrderNo))

		// Once healed, further replays stay no-ops.
		_, err = m.Complete(ctx, o.OrderNo, "payout-1")
		require.NoError(t, err)
		assert.Len(t, mutator.settled, 1)
	})

	t.Run("reject returns the reservation", func(t *testing.T) {
		_, mutator, m, o := setup(t)

		rejected, err := m.Reject(ctx, o.OrderNo, 9, "suspicious")
		require.NoError(t, err)
		assert.Equal(t, models.WithdrawStatusRejected, rejected.Status)
		assert.Equal(t, "suspicious", rejected.Reason)
		assert.Equal(t, int64(0), mutator.outstanding(o.OrderNo))
	})

	t.Run("cancel before payout returns the reservation", func(t *testing.T) {
		_, mutator, m, o := setup(t)
		_, err := m.Approve(ctx, o.OrderNo, 9)
		require.NoError(t, err)

		cancelled, err := m.Cancel(ctx, o.OrderNo, 1)
		require.NoError(t, err)
		assert.Equal(t, models.WithdrawStatusCancelled, cancelled.Status)
		assert.Equal(t, int64(0), mutator.outstanding(o.OrderNo))
	})

	t.Run("cancel is blocked once processing", func(t *testing.T) {
		_, mutator, m, o := setup(t)
		_, err := m.Approve(ctx, o.OrderNo, 9)
		require.NoError(t, err)
		_, err = m.MarkProcessing(ctx, o.OrderNo)
		require.NoError(t, err)

		_, err = m.Cancel(ctx, o.OrderNo, 1)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, int64(1000), mutator.outstanding(o.OrderNo))
	})

	t.Run("only the owner can cancel", func(t *testing.T) {
		_, _, m, o := setup(t)
		_, err := m.Cancel(ctx, o.OrderNo, 2)
		assert.ErrorIs(t, err, ErrNotOwner)
	})

	t.Run("reject after approve is an invalid transition", func(t *testing.T) {
		_, _, m, o := setup(t)
		_, err := m.Approve(ctx, o.OrderNo, 9)
		require.NoError(t, err)

		_, err = m.Reject(ctx, o.OrderNo, 9, "late")
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("settle failure rolls the status back", func(t *testing.T) {
		repo, mutator, m, o := setup(t)
		_, err := m.Approve(ctx, o.OrderNo, 9)
		require.NoError(t, err)

		mutator.settleErr = errors.New("reservation mismatch")
		_, err = m.Complete(ctx, o.OrderNo, "payout-1")
		require.Error(t, err)

		stored, err := repo.GetWithdrawOrder(ctx, o.OrderNo)
		require.NoError(t, err)
		assert.Equal(t, models.WithdrawStatusApproved, stored.Status)

		mutator.settleErr = nil
		completed, err := m.Complete(ctx, o.OrderNo, "payout-1")
		require.NoError(t, err)
		assert.Equal(t, models.WithdrawStatusCompleted, completed.Status)
	})

	t.Run("lost races resolve through a re-read", func(t *testing.T) {
		repo, mutator, m, o := setup(t)

		// A concurrent resolver completed the order between our read and write.
		repo.setWithdrawStatus(o.OrderNo, models.WithdrawStatusProcessing)
		o2, err := m.Approve(ctx, o.OrderNo, 9)
		require.Error(t, err)
		assert.Nil(t, o2)

		repo.setWithdrawStatus(o.OrderNo, models.WithdrawStatusCompleted)
		resolved, err := m.Reject(ctx, o.OrderNo, 9, "late")
		require.NoError(t, err)
		assert.Equal(t, models.WithdrawStatusCompleted, resolved.Status)
		assert.Empty(t, mutator.released)
	})
}
