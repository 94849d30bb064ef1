package internal

import (
	"time"

	"github.com/shopspring/decimal"
)

// Template identifies which of the two known vendor email layouts a message uses.
type Template string

const (
	TemplateOrderConfirmation Template = "order_confirmation"
	TemplateOrderReceipt      Template = "order_receipt"
)

// Order is the header record extracted once per processed email.
type Order struct {
	OrderNumber  string
	DeliveryDate time.Time
	Subtotal     decimal.Decimal
	Total        decimal.Decimal
}

// DeliveredItem is one item that actually arrived with the delivery. Items from
// the ordered section and from the substitutes section are merged into one
// collection; Substitution marks the provenance. SubstitutingItem carries the
// originally ordered item name and is empty unless Substitution is true.
type DeliveredItem struct {
	OrderNumber      string
	ItemName         string
	Substitution     bool
	SubstitutingItem string
	Price            decimal.Decimal
	Quantity         int
	UnitPrice        decimal.Decimal
}

// UnavailableItem is an ordered item the vendor could not deliver. The source
// layouts never expose a usable price for these lines, so none is kept.
type UnavailableItem struct {
	OrderNumber string
	ItemName    string
	Quantity    int
}

// OrderRecords is the full output of processing one email.
type OrderRecords struct {
	Order       Order
	Delivered   []DeliveredItem
	Unavailable []UnavailableItem
}

type EmailRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	Error      string
	RawRef     string
}

type MonthlySpendRow struct {
	Month string
	Total float64
}

type DeliveryCountsRow struct {
	DeliveryDate string
	Ordered      int
	Substituted  int
	Unavailable  int
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}
