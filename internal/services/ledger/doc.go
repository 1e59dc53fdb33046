/*
Package ledger implements the wallet balance mutator.

All changes to a wallet's balance, bonus and frozen pools flow through this
package, each paired with an immutable ledger entry written in the same
storage transaction. Concurrent writers are reconciled with optimistic
version checks: every mutation reads the wallet row with its version,
computes the new state in memory and issues a conditional update; losing the
race triggers a bounded re-read/re-write loop before the operation fails
with ErrConcurrentModification.

Idempotency is keyed on the caller-supplied order id. Replaying an order id
returns the original entry with Result.Applied set to false instead of
crediting or debiting twice; the unique index on the entry table backstops
the race where two replays run concurrently.

Usage:

	svc := ledger.NewService(repo, cache, nil, ledger.Config{})

	res, err := svc.Deposit(ctx, ledger.DepositParams{
	    UserID:  userID,
	    Amount:  1000,
	    OrderID: orderNo,
	})

	res, err = svc.Consume(ctx, ledger.ConsumeParams{
	    UserID:      userID,
	    Amount:      400,
	    Category:    "membership",
	    OrderID:     purchaseNo,
	    PreferBonus: true,
	})
*/
package ledger
