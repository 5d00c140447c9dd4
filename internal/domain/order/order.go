package order

import (
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("order: not found")
	ErrConflict        = errors.New("order: already exists")
	ErrNoItems         = errors.New("order: at least one line item is required")
	ErrInvalidQuantity = errors.New("order: quantity must be greater than zero")
	ErrInvalidPrice    = errors.New("order: unit price must be zero or greater")
	ErrBuyerIdentity   = errors.New("order: exactly one of registered buyer or guest contact is required")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// GuestContact identifies a buyer without an account. All three fields are
// required for the guest path.
type GuestContact struct {
	Name    string
	Contact string
	Address string
}

// BuyerIdentity is a tagged variant: either a registered user id or a guest
// contact record, never both and never neither.
type BuyerIdentity struct {
	UserID string
	Guest  *GuestContact
}

func RegisteredBuyer(userID string) BuyerIdentity {
	return BuyerIdentity{UserID: userID}
}

func GuestBuyer(name, contact, address string) BuyerIdentity {
	return BuyerIdentity{Guest: &GuestContact{Name: name, Contact: contact, Address: address}}
}

func (b BuyerIdentity) IsGuest() bool { return b.Guest != nil }

func (b BuyerIdentity) validate() error {
	registered := b.UserID != ""
	if registered == (b.Guest != nil) {
		return ErrBuyerIdentity
	}
	if g := b.Guest; g != nil {
		if g.Name == "" || g.Contact == "" || g.Address == "" {
			return ErrBuyerIdentity
		}
	}
	return nil
}

// LineItem is one (product, quantity, price) triple as proposed by the caller.
type LineItem struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Item is a persisted order line. UnitPrice is the price at order creation,
// decoupled from the catalog's current price so historical totals stay stable.
type Item struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

func (i Item) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is one customer transaction. Items are immutable after creation; only
// the status may transition.
type Order struct {
	ID          string
	Buyer       BuyerIdentity
	Items       []Item
	TotalAmount decimal.Decimal
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// New validates a proposed order and computes its authoritative total. Items
// are kept sorted by ascending product id so every order touches ledger rows
// in the same sequence. Registered-buyer orders start completed (immediate
// capture); guest orders start pending and await fulfillment confirmation.
func New(id string, buyer BuyerIdentity, items []LineItem) (*Order, error) {
	if err := buyer.validate(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNoItems
	}

	lines := make([]Item, 0, len(items))
	total := decimal.Zero
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if it.UnitPrice.IsNegative() {
			return nil, ErrInvalidPrice
		}
		line := Item{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice}
		lines = append(lines, line)
		total = total.Add(line.Subtotal())
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

	status := StatusCompleted
	if buyer.IsGuest() {
		status = StatusPending
	}

	now := time.Now().UTC()
	return &Order{
		ID:          id,
		Buyer:       buyer,
		Items:       lines,
		TotalAmount: total,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// MarkCompleted transitions a pending guest order once fulfillment is
// confirmed.
func (o *Order) MarkCompleted() {
	o.Status = StatusCompleted
	o.touch()
}

func (o *Order) MarkCancelled() {
	o.Status = StatusCancelled
	o.touch()
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = append([]Item(nil), o.Items...)
	if o.Buyer.Guest != nil {
		guest := *o.Buyer.Guest
		clone.Buyer.Guest = &guest
	}
	return &clone
}
