package ledgerv1

import (
	"context"

	"github.com/shopspring/decimal"
)

// Ledger defines the interface for the per-user, per-currency balance store.
//
// An unseen user/currency pair is lazily initialized to a fixed default
// balance on first access.
type Ledger interface {
	// GetBalance returns the user's balance for a currency ticker.
	GetBalance(ctx context.Context, userID, ticker string) decimal.Decimal
	// AlterBalance applies delta to the user's balance. When
	// failOnNegative is true and the result would be negative, the
	// balance is left untouched and false is returned.
	AlterBalance(ctx context.Context, userID, ticker string, delta decimal.Decimal, failOnNegative bool) bool
	// Balances returns a read-only view of every known balance,
	// string-encoded per user and ticker.
	Balances(ctx context.Context) map[string]map[string]string
}
