package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceScale is the number of decimal places money is stored with.
const PriceScale = 2

// MaxLineQuantity is the largest quantity of one product an order may ask for.
// Stock is an INTEGER column, so no larger request can ever be filled.
const MaxLineQuantity = math.MaxInt32

// Order links a user to the details of one successful placement. Orders are immutable.
type Order struct {
	ID             uuid.UUID `json:"id" db:"id"`
	UserID         uuid.UUID `json:"user_id" db:"user_id"`
	OrderDetailsID uuid.UUID `json:"order_details_id" db:"order_details_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

type OrderDetails struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	TotalPrice decimal.Decimal `json:"total_price" db:"total_price"`
}

// OrderLineRequest is one requested (product, quantity) pair.
type OrderLineRequest struct {
	ProductID uuid.UUID
	Quantity  int
}

// OrderLine is a product as it was sold: UnitPrice is frozen at placement time.
type OrderLine struct {
	ProductID    uuid.UUID
	Name         string
	Description  string
	ImageURL     string
	UnitPrice    decimal.Decimal
	Quantity     int
	CategoryID   uuid.UUID
	CategoryName string
}

// Subtotal returns UnitPrice × Quantity.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// OrderResult is an order with its details and lines.
type OrderResult struct {
	Order   Order
	Details OrderDetails
	Lines   []OrderLine
}

// OrderSummary is the short form of an order shown on a user profile.
type OrderSummary struct {
	ID         uuid.UUID
	CreatedAt  time.Time
	TotalPrice decimal.Decimal
}

// MergeLines sums the quantities of lines that name the same product and
// returns one line per product in first-seen order. ok is false, and offset
// is the index of the line that tipped it over, when a product's quantity
// leaves the 1..MaxLineQuantity range.
func MergeLines(lines []OrderLineRequest) (merged []OrderLineRequest, offset int, ok bool) {
	index := make(map[uuid.UUID]int, len(lines))
	merged = make([]OrderLineRequest, 0, len(lines))
	for n, l := range lines {
		if l.Quantity <= 0 || l.Quantity > MaxLineQuantity {
			return nil, n, false
		}
		if i, seen := index[l.ProductID]; seen {
			if merged[i].Quantity > MaxLineQuantity-l.Quantity {
				return nil, n, false
			}
			merged[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(merged)
		merged = append(merged, l)
	}
	return merged, 0, true
}

// ComputeTotal returns the sum of the line subtotals rounded to PriceScale.
func ComputeTotal(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total.Round(PriceScale)
}
