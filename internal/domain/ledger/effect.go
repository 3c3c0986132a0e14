package ledger

import "time"

// applyEffect mutates level by the movement's effect:
//
//	in, return              quantity += n, unit cost := tx unit cost
//	out, damage, expiry     quantity -= n
//	transfer                no change
//	adjustment              quantity := n
//
// An adjustment records the quantity it replaced on tx so it can be undone.
func applyEffect(level *StockLevel, tx *Transaction) {
	switch {
	case tx.Type.IsInbound():
		level.Quantity += tx.Quantity
		level.UnitCost = tx.UnitCost
	case tx.Type.IsOutbound():
		level.Quantity -= tx.Quantity
	case tx.Type == TypeAdjustment:
		previous := level.Quantity
		tx.PreviousQuantity = &previous
		level.Quantity = tx.Quantity
	}
	level.UpdatedAt = time.Now().UTC()
}

// reverseEffect undoes applyEffect. Reversing an adjustment removes the
// shift it introduced (quantity - previous), so movements recorded after it
// are preserved. An adjustment without a recorded previous quantity is left
// untouched. The unit cost is last-write-wins and is not restored.
func reverseEffect(level *StockLevel, tx *Transaction) {
	switch {
	case tx.Type.IsInbound():
		level.Quantity -= tx.Quantity
	case tx.Type.IsOutbound():
		level.Quantity += tx.Quantity
	case tx.Type == TypeAdjustment:
		if tx.PreviousQuantity != nil {
			level.Quantity -= tx.Quantity - *tx.PreviousQuantity
		}
	}
	level.UpdatedAt = time.Now().UTC()
}

// SignedEffect is the quantity change a non-adjustment movement contributes.
func SignedEffect(t TransactionType, quantity int64) int64 {
	switch {
	case t.IsInbound():
		return quantity
	case t.IsOutbound():
		return -quantity
	}
	return 0
}
