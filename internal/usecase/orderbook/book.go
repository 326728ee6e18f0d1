package orderbook

import (
	"fmt"

	orderbookv1 "github.com/funbux/exchange/internal/domain/orderbook/v1"
	"github.com/funbux/exchange/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"
)

// bookSide is one trading direction of the book: a best-price-first
// ordered collection of rows, a price index for O(1) row lookup, and
// side-wide aggregates.
type bookSide struct {
	side orderbookv1.Side
	tree *btree.BTreeG[*orderbookv1.Row]
	rows map[string]*orderbookv1.Row // price -> row

	amount decimal.Decimal
	value  decimal.Decimal
}

func newBookSide(side orderbookv1.Side) *bookSide {
	// The comparator is reversed between the sides so that an in-order
	// walk always yields the best price first: highest bid, lowest ask.
	less := func(a, b *orderbookv1.Row) bool {
		return a.Price.LessThan(b.Price)
	}
	if side == orderbookv1.SideBuy {
		less = func(a, b *orderbookv1.Row) bool {
			return a.Price.GreaterThan(b.Price)
		}
	}

	return &bookSide{
		side: side,
		tree: btree.NewBTreeG(less),
		rows: make(map[string]*orderbookv1.Row),
	}
}

// row finds or creates the row at the given price.
func (s *bookSide) row(price decimal.Decimal) *orderbookv1.Row {
	key := price.String()
	row, exists := s.rows[key]
	if !exists {
		row = orderbookv1.NewRow(price, s.side)
		s.tree.Set(row)
		s.rows[key] = row
	}
	return row
}

func (s *bookSide) dropRow(row *orderbookv1.Row) {
	s.tree.Delete(row)
	delete(s.rows, row.Price.String())
}

// Book implements the single-instrument order book: a buy side, a sell
// side and an order-id index covering every live entry.
type Book struct {
	baseTicker  string
	quoteTicker string

	buy  *bookSide
	sell *bookSide

	orders map[string]*orderbookv1.Entry // orderID -> entry
}

// NewBook creates an empty book for the given currency pair.
func NewBook(baseTicker, quoteTicker string) *Book {
	return &Book{
		baseTicker:  baseTicker,
		quoteTicker: quoteTicker,
		buy:         newBookSide(orderbookv1.SideBuy),
		sell:        newBookSide(orderbookv1.SideSell),
		orders:      make(map[string]*orderbookv1.Entry),
	}
}

func (b *Book) sideOf(side orderbookv1.Side) *bookSide {
	if side == orderbookv1.SideBuy {
		return b.buy
	}
	return b.sell
}

// Insert places a new resting entry at price on the given side,
// creating the row when it is the first entry at that price.
func (b *Book) Insert(side orderbookv1.Side, userID, orderID string, price, amount decimal.Decimal) (*orderbookv1.Entry, error) {
	if !side.Valid() {
		return nil, errors.NewErrorDetails("unknown side", string(errors.ErrInvalidOrder), "side")
	}
	if orderID == "" {
		return nil, errors.NewErrorDetails("order id cannot be empty", string(errors.ErrInvalidOrder), "orderID")
	}
	if !price.IsPositive() {
		return nil, errors.NewErrorDetails("price must be positive", string(errors.ErrInvalidOrder), "price")
	}
	if !amount.IsPositive() {
		return nil, errors.NewErrorDetails("amount must be positive", string(errors.ErrInvalidOrder), "amount")
	}
	if _, exists := b.orders[orderID]; exists {
		return nil, errors.NewErrorDetails(
			fmt.Sprintf("order %s already rests in the book", orderID),
			string(errors.ErrDuplicateOrder),
			"orderID",
		)
	}

	s := b.sideOf(side)
	entry := s.row(price).Push(userID, orderID, amount)

	s.amount = s.amount.Add(entry.Amount)
	s.value = s.value.Add(entry.Value)

	b.orders[orderID] = entry

	return entry, nil
}

// Reduce decrements the entry and cascades the delta through its row
// and side aggregates. The entry is deleted from its row and from the
// id index when its amount reaches zero; the row is deleted from its
// side when the last entry goes.
func (b *Book) Reduce(entry *orderbookv1.Entry, amount, value decimal.Decimal) {
	s := b.sideOf(entry.Side)
	row, exists := s.rows[entry.Price.String()]
	if !exists {
		return
	}

	removed := row.Reduce(entry, amount, value)

	s.amount = s.amount.Sub(amount)
	s.value = s.value.Sub(value)

	if removed {
		delete(b.orders, entry.ID)
	}
	if row.Empty() {
		s.dropRow(row)
	}
}

// Remove fully removes an entry from the book.
func (b *Book) Remove(entry *orderbookv1.Entry) {
	b.Reduce(entry, entry.Amount, entry.Value)
}

// RemoveRow drains every entry of the row at price, front to back.
func (b *Book) RemoveRow(side orderbookv1.Side, price decimal.Decimal) {
	row, exists := b.sideOf(side).rows[price.String()]
	if !exists {
		return
	}

	entries := make([]*orderbookv1.Entry, len(row.Entries))
	copy(entries, row.Entries)
	for _, entry := range entries {
		b.Remove(entry)
	}
}

// Cancel removes the entry with the given order id and returns a
// snapshot of it taken just before removal. Returns nil when the id is
// not resting in the book.
func (b *Book) Cancel(orderID string) *orderbookv1.OrderSnapshot {
	entry, exists := b.orders[orderID]
	if !exists {
		return nil
	}

	snapshot := &orderbookv1.OrderSnapshot{
		ID:     entry.ID,
		UserID: entry.UserID,
		Amount: entry.Amount,
		Value:  entry.Value,
		Side:   entry.Side,
	}
	b.Remove(entry)

	return snapshot
}

// Entry looks up a live entry by order id.
func (b *Book) Entry(orderID string) (*orderbookv1.Entry, bool) {
	entry, exists := b.orders[orderID]
	return entry, exists
}

// BestRow returns the best-priced row of a side, nil when the side is empty.
func (b *Book) BestRow(side orderbookv1.Side) *orderbookv1.Row {
	row, exists := b.sideOf(side).tree.Min()
	if !exists {
		return nil
	}
	return row
}

// WalkRows visits the rows of a side best price first until fn returns false.
func (b *Book) WalkRows(side orderbookv1.Side, fn func(*orderbookv1.Row) bool) {
	b.sideOf(side).tree.Scan(fn)
}

// SideAmount returns the aggregate base amount resting on a side.
func (b *Book) SideAmount(side orderbookv1.Side) decimal.Decimal {
	return b.sideOf(side).amount
}

// SideValue returns the aggregate notional resting on a side.
func (b *Book) SideValue(side orderbookv1.Side) decimal.Decimal {
	return b.sideOf(side).value
}

// Snapshot produces a read-only view of the book: per side the ordered
// price levels with their FIFO entries, plus the side aggregates.
func (b *Book) Snapshot() *orderbookv1.BookSnapshot {
	snapshot := &orderbookv1.BookSnapshot{
		Base:       b.baseTicker,
		Quote:      b.quoteTicker,
		Buy:        make([]orderbookv1.LevelView, 0, b.buy.tree.Len()),
		Sell:       make([]orderbookv1.LevelView, 0, b.sell.tree.Len()),
		BuyAmount:  b.buy.amount.String(),
		BuyValue:   b.buy.value.String(),
		SellAmount: b.sell.amount.String(),
		SellValue:  b.sell.value.String(),
	}

	b.WalkRows(orderbookv1.SideBuy, func(row *orderbookv1.Row) bool {
		snapshot.Buy = append(snapshot.Buy, levelView(row))
		return true
	})
	b.WalkRows(orderbookv1.SideSell, func(row *orderbookv1.Row) bool {
		snapshot.Sell = append(snapshot.Sell, levelView(row))
		return true
	})

	return snapshot
}

func levelView(row *orderbookv1.Row) orderbookv1.LevelView {
	view := orderbookv1.LevelView{
		Price:   row.Price.String(),
		Amount:  row.Amount.String(),
		Value:   row.Value.String(),
		Entries: make([]orderbookv1.EntryView, 0, len(row.Entries)),
	}
	for _, entry := range row.Entries {
		view.Entries = append(view.Entries, orderbookv1.EntryView{
			ID:     entry.ID,
			Amount: entry.Amount.String(),
			Value:  entry.Value.String(),
		})
	}
	return view
}

// Validate checks the aggregate invariants over all reachable state:
// entry value/amount consistency, row and side sums, no empty rows, and
// the id index covering exactly the live entries.
func (b *Book) Validate() error {
	indexed := 0

	for _, s := range []*bookSide{b.buy, b.sell} {
		var sideAmount, sideValue decimal.Decimal
		var walkErr error

		s.tree.Scan(func(row *orderbookv1.Row) bool {
			if row.Empty() {
				walkErr = inconsistency(fmt.Sprintf("%s side keeps an empty row at price %s", s.side, row.Price))
				return false
			}

			var rowAmount, rowValue decimal.Decimal
			for _, entry := range row.Entries {
				if !entry.Amount.IsPositive() {
					walkErr = inconsistency(fmt.Sprintf("entry %s has non-positive amount %s", entry.ID, entry.Amount))
					return false
				}
				if !entry.Value.Equal(entry.Amount.Mul(row.Price)) {
					walkErr = inconsistency(fmt.Sprintf("entry %s value %s != amount %s * price %s", entry.ID, entry.Value, entry.Amount, row.Price))
					return false
				}
				if _, exists := b.orders[entry.ID]; !exists {
					walkErr = inconsistency(fmt.Sprintf("entry %s missing from the id index", entry.ID))
					return false
				}
				indexed++
				rowAmount = rowAmount.Add(entry.Amount)
				rowValue = rowValue.Add(entry.Value)
			}

			if !row.Amount.Equal(rowAmount) || !row.Value.Equal(rowValue) {
				walkErr = inconsistency(fmt.Sprintf("row %s/%s aggregates drifted from entry sums", s.side, row.Price))
				return false
			}

			sideAmount = sideAmount.Add(row.Amount)
			sideValue = sideValue.Add(row.Value)
			return true
		})
		if walkErr != nil {
			return walkErr
		}

		if !s.amount.Equal(sideAmount) || !s.value.Equal(sideValue) {
			return inconsistency(fmt.Sprintf("%s side aggregates drifted from row sums", s.side))
		}
	}

	if indexed != len(b.orders) {
		return inconsistency(fmt.Sprintf("id index holds %d orders, book holds %d", len(b.orders), indexed))
	}

	return nil
}

func inconsistency(message string) error {
	return errors.NewErrorDetails(message, string(errors.ErrBookInconsistent), "")
}
