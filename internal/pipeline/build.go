package pipeline

import (
	"fmt"

	"github.com/shopspring/decimal"

	"gromail/internal"
	"gromail/internal/categories"
	"gromail/internal/util"
)

// FieldParseError means a value the template guarantees to be numeric or a
// date failed its strict parse. Fatal for the email.
type FieldParseError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldParseError) Error() string {
	return fmt.Sprintf("parse %s from %q: %v", e.Field, e.Value, e.Err)
}

func (e *FieldParseError) Unwrap() error { return e.Err }

// ParseOrderEmail turns one raw .eml payload into the order header, delivered
// items and unavailable items for that order. It is a pure function of the
// message bytes and the category list.
func ParseOrderEmail(raw []byte, cats *categories.List) (internal.OrderRecords, error) {
	msg, err := ReadMessage(raw)
	if err != nil {
		return internal.OrderRecords{}, err
	}
	extracted, err := extractOrder(msg, cats)
	if err != nil {
		return internal.OrderRecords{}, err
	}
	return buildOrder(extracted)
}

// buildOrder converts raw string tuples into typed records. Money fields are
// strict; quantities fall back to 1 for weight-based items; unit price is
// always recomputed from price and quantity, never read from the text.
func buildOrder(raw rawOrder) (internal.OrderRecords, error) {
	subtotal, err := util.ParseMoney(raw.subtotal)
	if err != nil {
		return internal.OrderRecords{}, &FieldParseError{Field: "subtotal", Value: raw.subtotal, Err: err}
	}
	total, err := util.ParseMoney(raw.total)
	if err != nil {
		return internal.OrderRecords{}, &FieldParseError{Field: "total", Value: raw.total, Err: err}
	}

	records := internal.OrderRecords{
		Order: internal.Order{
			OrderNumber:  raw.orderNumber,
			DeliveryDate: raw.deliveryDate,
			Subtotal:     subtotal,
			Total:        total,
		},
	}

	// substitutes precede ordered rows in the merged collection
	for _, sub := range raw.substitutes {
		price, err := util.ParseMoney(sub.price)
		if err != nil {
			return internal.OrderRecords{}, &FieldParseError{Field: "price", Value: sub.price, Err: err}
		}
		qty := util.ParseQuantity(sub.qty)
		records.Delivered = append(records.Delivered, internal.DeliveredItem{
			OrderNumber:      raw.orderNumber,
			ItemName:         sub.replacement,
			Substitution:     true,
			SubstitutingItem: sub.original,
			Price:            price,
			Quantity:         qty,
			UnitPrice:        unitPrice(price, qty),
		})
	}

	for _, item := range raw.ordered {
		price, err := util.ParseMoney(item.price)
		if err != nil {
			return internal.OrderRecords{}, &FieldParseError{Field: "price", Value: item.price, Err: err}
		}
		qty := util.ParseQuantity(item.qty)
		records.Delivered = append(records.Delivered, internal.DeliveredItem{
			OrderNumber: raw.orderNumber,
			ItemName:    item.name,
			Price:       price,
			Quantity:    qty,
			UnitPrice:   unitPrice(price, qty),
		})
	}

	for _, item := range raw.unavailable {
		records.Unavailable = append(records.Unavailable, internal.UnavailableItem{
			OrderNumber: raw.orderNumber,
			ItemName:    item.name,
			Quantity:    util.ParseQuantity(item.qty),
		})
	}

	return records, nil
}

func unitPrice(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Div(decimal.NewFromInt(int64(qty)))
}
