package policy

import (
	"context"
	"testing"
	"time"

	"aurum/internal/models"
	"aurum/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubWalletRepo serves the two reads the guard performs; everything else is
// out of scope here.
type stubWalletRepo struct {
	repositories.WalletRepository

	wallet        models.Wallet
	consumedByCat map[string]int64
}

func (s *stubWalletRepo) CreateIfAbsent(ctx context.Context, userID uint) (*models.Wallet, error) {
	w := s.wallet
	w.UserID = userID
	return &w, nil
}

func (s *stubWalletRepo) SumConsumedSince(ctx context.Context, userID uint, category string, since time.Time) (int64, error) {
	return s.consumedByCat[category], nil
}

func activeWallet(main, bonus int64) models.Wallet {
	return models.Wallet{Balance: main, BonusBalance: bonus, Status: models.WalletStatusActive}
}

func TestGuardCheck(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		cfg      Config
		repo     *stubWalletRepo
		amount   int64
		category string
		want     Decision
	}{
		{
			name:   "allowed with no limits configured",
			repo:   &stubWalletRepo{wallet: activeWallet(1000, 0)},
			amount: 500,
			want:   Decision{Allowed: true},
		},
		{
			name:   "invalid amount",
			repo:   &stubWalletRepo{wallet: activeWallet(1000, 0)},
			amount: 0,
			want:   Decision{Reason: ReasonInvalidAmount},
		},
		{
			name:   "per-transaction ceiling",
			cfg:    Config{Default: CategoryLimit{MaxPerTransaction: 100}},
			repo:   &stubWalletRepo{wallet: activeWallet(1000, 0)},
			amount: 101,
			want:   Decision{Reason: ReasonTxCeiling},
		},
		{
			name: "daily ceiling counts prior spend",
			cfg:  Config{Default: CategoryLimit{DailyCeiling: 500}},
			repo: &stubWalletRepo{
				wallet:        activeWallet(1000, 0),
				consumedByCat: map[string]int64{"api": 450},
			},
			amount:   51,
			category: "api",
			want:     Decision{Reason: ReasonDailyCeiling},
		},
		{
			name: "category override beats the default",
			cfg: Config{
				Default:    CategoryLimit{MaxPerTransaction: 100},
				Categories: map[string]CategoryLimit{"bulk": {MaxPerTransaction: 10000}},
			},
			repo:     &stubWalletRepo{wallet: activeWallet(20000, 0)},
			amount:   5000,
			category: "bulk",
			want:     Decision{Allowed: true},
		},
		{
			name:   "insufficient funds reports the shortfall",
			repo:   &stubWalletRepo{wallet: activeWallet(100, 50)},
			amount: 200,
			want:   Decision{Reason: ReasonInsufficientFunds, Shortfall: 50},
		},
		{
			name:   "bonus funds count toward affordability",
			repo:   &stubWalletRepo{wallet: activeWallet(100, 150)},
			amount: 200,
			want:   Decision{Allowed: true},
		},
		{
			name:   "frozen wallet is unavailable",
			repo:   &stubWalletRepo{wallet: models.Wallet{Balance: 1000, Status: models.WalletStatusFrozen}},
			amount: 100,
			want:   Decision{Reason: ReasonWalletUnavailable},
		},
		{
			name:   "large amounts need confirmation",
			cfg:    Config{Default: CategoryLimit{ConfirmAbove: 500}},
			repo:   &stubWalletRepo{wallet: activeWallet(10000, 0)},
			amount: 501,
			want:   Decision{Allowed: true, RequiresConfirmation: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGuard(tt.repo, tt.cfg)
			got, err := g.Check(ctx, 1, tt.amount, tt.category)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGuardDailyWindow(t *testing.T) {
	// The ceiling resets at midnight UTC: the guard asks for spend since the
	// start of the current UTC day.
	repo := &recordingRepo{stubWalletRepo: stubWalletRepo{wallet: activeWallet(1000, 0)}}
	g := NewGuard(repo, Config{Default: CategoryLimit{DailyCeiling: 500}})
	g.now = func() time.Time {
		return time.Date(2026, 3, 1, 15, 30, 0, 0, time.FixedZone("CET", 3600))
	}

	_, err := g.Check(context.Background(), 1, 100, "api")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), repo.since)
}

type recordingRepo struct {
	stubWalletRepo
	since time.Time
}

func (r *recordingRepo) SumConsumedSince(ctx context.Context, userID uint, category string, since time.Time) (int64, error) {
	r.since = since
	return 0, nil
}
