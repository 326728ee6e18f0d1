package ledger

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// Ledger is an in-memory per-user, per-currency balance store. A
// user/currency pair that has never been touched starts at the default
// balance on first access.
//
// The matching engine serializes its calls through a single worker;
// the mutex only guards the read-only Balances view, which may be
// requested at any time.
type Ledger struct {
	mu             sync.RWMutex
	balances       map[string]map[string]decimal.Decimal // userID -> ticker -> balance
	defaultBalance decimal.Decimal
}

// NewLedger creates a ledger whose unseen balances start at defaultBalance.
func NewLedger(defaultBalance decimal.Decimal) *Ledger {
	return &Ledger{
		balances:       make(map[string]map[string]decimal.Decimal),
		defaultBalance: defaultBalance,
	}
}

// balance lazily initializes and returns the current balance. Callers hold mu.
func (l *Ledger) balance(userID, ticker string) decimal.Decimal {
	userBalances, exists := l.balances[userID]
	if !exists {
		userBalances = make(map[string]decimal.Decimal)
		l.balances[userID] = userBalances
	}

	current, exists := userBalances[ticker]
	if !exists {
		current = l.defaultBalance
		userBalances[ticker] = current
	}

	return current
}

// GetBalance returns the user's balance for a currency ticker.
func (l *Ledger) GetBalance(_ context.Context, userID, ticker string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.balance(userID, ticker)
}

// AlterBalance applies delta to the user's balance. When failOnNegative
// is true and the result would be negative, the balance is left
// untouched and false is returned.
func (l *Ledger) AlterBalance(_ context.Context, userID, ticker string, delta decimal.Decimal, failOnNegative bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.balance(userID, ticker).Add(delta)
	if next.IsNegative() && failOnNegative {
		return false
	}

	l.balances[userID][ticker] = next
	return true
}

// Balances returns a string-encoded view of every known balance.
func (l *Ledger) Balances(_ context.Context) map[string]map[string]string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	view := make(map[string]map[string]string, len(l.balances))
	for userID, userBalances := range l.balances {
		view[userID] = make(map[string]string, len(userBalances))
		for ticker, balance := range userBalances {
			view[userID][ticker] = balance.String()
		}
	}

	return view
}
