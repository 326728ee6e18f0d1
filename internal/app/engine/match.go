package engine

import (
	"context"

	eventv1 "github.com/funbux/exchange/internal/domain/event/v1"
	orderbookv1 "github.com/funbux/exchange/internal/domain/orderbook/v1"
	"github.com/funbux/exchange/pkg/logger"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// crosses reports whether a resting row at rowPrice can trade against
// our limit price: at or below it for a buy, at or above it for a sell.
func crosses(side orderbookv1.Side, rowPrice, ourPrice decimal.Decimal) bool {
	if side == orderbookv1.SideBuy {
		return rowPrice.LessThanOrEqual(ourPrice)
	}
	return rowPrice.GreaterThanOrEqual(ourPrice)
}

// fillPlan is the tentative outcome of a matching walk. Nothing in the
// book or ledger is touched while a plan is being built; it is applied
// only after the balance gate passes.
type fillPlan struct {
	fullRows    []*orderbookv1.Row
	fullEntries []*orderbookv1.Entry

	partialEntry  *orderbookv1.Entry
	partialAmount decimal.Decimal
	partialValue  decimal.Decimal

	matchedAmount decimal.Decimal
	matchedValue  decimal.Decimal
	leftover      decimal.Decimal
}

// buildPlan walks the opposite side best price first. A row whose whole
// aggregate fits the remaining amount is consumed wholesale; otherwise
// its entries are consumed in FIFO order, entry by entry, until the
// remaining amount is exhausted or the row runs out.
func (e *Engine) buildPlan(side orderbookv1.Side, isLimit bool, amount, price decimal.Decimal) *fillPlan {
	plan := &fillPlan{leftover: amount}

	e.book.WalkRows(side.Opposite(), func(row *orderbookv1.Row) bool {
		if isLimit && !crosses(side, row.Price, price) {
			return false
		}

		if row.Amount.LessThanOrEqual(plan.leftover) {
			plan.fullRows = append(plan.fullRows, row)
			plan.matchedAmount = plan.matchedAmount.Add(row.Amount)
			plan.matchedValue = plan.matchedValue.Add(row.Value)
			plan.leftover = plan.leftover.Sub(row.Amount)
			return plan.leftover.IsPositive()
		}

		for _, entry := range row.Entries {
			if !plan.leftover.IsPositive() {
				break
			}

			if entry.Amount.LessThanOrEqual(plan.leftover) {
				plan.fullEntries = append(plan.fullEntries, entry)
				plan.matchedAmount = plan.matchedAmount.Add(entry.Amount)
				plan.matchedValue = plan.matchedValue.Add(entry.Value)
				plan.leftover = plan.leftover.Sub(entry.Amount)
				continue
			}

			plan.partialEntry = entry
			plan.partialAmount = plan.leftover
			plan.partialValue = plan.leftover.Mul(row.Price)
			plan.matchedAmount = plan.matchedAmount.Add(plan.partialAmount)
			plan.matchedValue = plan.matchedValue.Add(plan.partialValue)
			plan.leftover = decimal.Zero
			break
		}

		return plan.leftover.IsPositive()
	})

	return plan
}

func (e *Engine) placeOrder(ctx context.Context, userID string, side orderbookv1.Side, amount, price decimal.Decimal) bool {
	if userID == "" || !side.Valid() || !amount.IsPositive() || price.IsNegative() {
		e.logger.Warn("Rejecting malformed order",
			logger.Field{Key: "userID", Value: userID},
			logger.Field{Key: "side", Value: side},
			logger.Field{Key: "amount", Value: amount},
			logger.Field{Key: "price", Value: price},
		)
		return false
	}

	// Price zero denotes a market order
	isLimit := price.IsPositive()

	spendTicker, receiveTicker := e.config.QuoteTicker, e.config.BaseTicker
	ourFullValue := amount.Mul(price)
	if side == orderbookv1.SideSell {
		spendTicker, receiveTicker = e.config.BaseTicker, e.config.QuoteTicker
		ourFullValue = amount
	}

	orderID := ulid.Make().String()

	// Fast path: a limit order that cannot cross rests immediately,
	// reserving its full notional.
	if isLimit {
		best := e.book.BestRow(side.Opposite())
		if best == nil || !crosses(side, best.Price, price) {
			if e.ledger.GetBalance(ctx, userID, spendTicker).LessThan(ourFullValue) {
				e.logger.Debug("Insufficient balance to rest order",
					logger.Field{Key: "userID", Value: userID},
					logger.Field{Key: "required", Value: ourFullValue},
				)
				return false
			}

			if _, err := e.book.Insert(side, userID, orderID, price, amount); err != nil {
				e.logger.Error(err, logger.Field{Key: "action", Value: "insert_order"})
				return false
			}
			e.emit(eventv1.NewPlace(eventv1.PlacePayload{
				UserID: userID,
				Side:   side,
				Price:  price,
				Amount: amount,
			}))

			e.ledger.AlterBalance(ctx, userID, spendTicker, ourFullValue.Neg(), true)
			return true
		}
	}

	plan := e.buildPlan(side, isLimit, amount, price)

	// Balance gate: a limit order reserves its full original notional
	// (matched part plus any remainder that will rest); a market order
	// only needs to cover what actually matched.
	required := ourFullValue
	if !isLimit {
		required = plan.matchedValue
		if side == orderbookv1.SideSell {
			required = plan.matchedAmount
		}
	}
	if e.ledger.GetBalance(ctx, userID, spendTicker).LessThan(required) {
		e.logger.Debug("Insufficient balance to match order",
			logger.Field{Key: "userID", Value: userID},
			logger.Field{Key: "required", Value: required},
		)
		return false
	}

	e.applyPlan(ctx, plan, userID, side, spendTicker, receiveTicker)

	// A limit remainder rests at the limit price and reserves its
	// notional; a market remainder is dropped.
	if plan.leftover.IsPositive() && isLimit {
		if _, err := e.book.Insert(side, userID, orderID, price, plan.leftover); err != nil {
			e.logger.Error(err, logger.Field{Key: "action", Value: "insert_remainder"})
			return false
		}
		e.emit(eventv1.NewPlace(eventv1.PlacePayload{
			UserID: userID,
			Side:   side,
			Price:  price,
			Amount: plan.leftover,
		}))

		restNotional := plan.leftover
		if side == orderbookv1.SideBuy {
			restNotional = plan.leftover.Mul(price)
		}
		e.ledger.AlterBalance(ctx, userID, spendTicker, restNotional.Neg(), true)
	}

	e.logger.Info("Order matched",
		logger.Field{Key: "userID", Value: userID},
		logger.Field{Key: "side", Value: side},
		logger.Field{Key: "matchedAmount", Value: plan.matchedAmount},
		logger.Field{Key: "matchedValue", Value: plan.matchedValue},
		logger.Field{Key: "leftover", Value: plan.leftover},
	)

	return true
}

// balanceChange is one queued counterparty credit.
type balanceChange struct {
	userID string
	ticker string
	delta  decimal.Decimal
}

// applyPlan commits a fill plan: book reductions first, then trade
// events (counterparty perspective plus the taker's mirror), then the
// counterparty credits, then the taker's own debit and credit.
func (e *Engine) applyPlan(ctx context.Context, plan *fillPlan, userID string, side orderbookv1.Side, spendTicker, receiveTicker string) {
	otherSide := side.Opposite()

	var tradeEvents []eventv1.TradePayload
	var credits []balanceChange

	consume := func(entry *orderbookv1.Entry, amount, value decimal.Decimal) {
		tradeEvents = append(tradeEvents, eventv1.TradePayload{
			UserID: entry.UserID,
			Side:   otherSide,
			Price:  entry.Price,
			Amount: amount,
		})

		owed := value
		if side == orderbookv1.SideSell {
			owed = amount
		}
		credits = append(credits, balanceChange{
			userID: entry.UserID,
			ticker: spendTicker,
			delta:  owed,
		})
	}

	for _, row := range plan.fullRows {
		for _, entry := range row.Entries {
			consume(entry, entry.Amount, entry.Value)
		}
		e.book.RemoveRow(otherSide, row.Price)
	}

	for _, entry := range plan.fullEntries {
		consume(entry, entry.Amount, entry.Value)
		e.book.Remove(entry)
	}

	if plan.partialEntry != nil {
		consume(plan.partialEntry, plan.partialAmount, plan.partialValue)
		e.book.Reduce(plan.partialEntry, plan.partialAmount, plan.partialValue)
	}

	for _, payload := range tradeEvents {
		e.emit(eventv1.NewTrade(payload))

		mirrored := payload
		mirrored.UserID = userID
		mirrored.Side = side
		e.emit(eventv1.NewTrade(mirrored))
	}

	for _, credit := range credits {
		e.ledger.AlterBalance(ctx, credit.userID, credit.ticker, credit.delta, true)
	}

	spent := plan.matchedValue
	received := plan.matchedAmount
	if side == orderbookv1.SideSell {
		spent, received = plan.matchedAmount, plan.matchedValue
	}
	e.ledger.AlterBalance(ctx, userID, spendTicker, spent.Neg(), true)
	e.ledger.AlterBalance(ctx, userID, receiveTicker, received, true)
}

func (e *Engine) cancelOrder(ctx context.Context, orderID string) bool {
	snapshot := e.book.Cancel(orderID)
	if snapshot == nil {
		e.logger.Debug("Cancel of unknown order",
			logger.Field{Key: "orderID", Value: orderID},
		)
		return false
	}

	// Refund the reserved notional: quote for a buy, base for a sell.
	refundTicker, refund := e.config.QuoteTicker, snapshot.Value
	if snapshot.Side == orderbookv1.SideSell {
		refundTicker, refund = e.config.BaseTicker, snapshot.Amount
	}
	e.ledger.AlterBalance(ctx, snapshot.UserID, refundTicker, refund, true)

	e.emit(eventv1.NewCancel(eventv1.CancelPayload{
		ID:     snapshot.ID,
		UserID: snapshot.UserID,
		Amount: snapshot.Amount,
		Value:  snapshot.Value,
		Side:   snapshot.Side,
	}))

	e.logger.Info("Order cancelled",
		logger.Field{Key: "orderID", Value: orderID},
		logger.Field{Key: "userID", Value: snapshot.UserID},
	)

	return true
}
