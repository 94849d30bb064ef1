package pipeline

import (
	"errors"
	"time"

	"gromail/internal"
	"gromail/internal/categories"
)

const (
	// Confirmation emails label a replacement as "Substituted with - <name>".
	substitutePrefixLen = 19
	// Receipt item lines start with a quantity prefix like "2 x ".
	receiptItemPrefixLen = 4

	confirmationDateLayout    = "02 Jan 2006"
	confirmationDatePrefixLen = 11
	receiptDateLayout         = "Mon, 02 Jan 2006"
	receiptDatePrefixLen      = 16

	promoLine = "You still get your discount"
)

type rawOrderedItem struct {
	name  string
	price string
	qty   string
}

type rawSubstitute struct {
	original    string
	replacement string
	qty         string
	price       string
}

type rawUnavailable struct {
	name string
	qty  string
}

// rawOrder holds the still-untyped field values of one email. Every stage
// after section location works off this record instead of reaching back into
// the line sequence.
type rawOrder struct {
	template     internal.Template
	orderNumber  string
	deliveryDate time.Time
	subtotal     string
	total        string
	ordered      []rawOrderedItem
	substitutes  []rawSubstitute
	unavailable  []rawUnavailable
}

func extractOrder(msg Message, cats *categories.List) (rawOrder, error) {
	template, err := ClassifyTemplate(msg.Subject)
	if err != nil {
		return rawOrder{}, err
	}
	switch template {
	case internal.TemplateOrderConfirmation:
		return extractConfirmation(msg, cats)
	default:
		return extractReceipt(msg, cats)
	}
}

// extractConfirmation handles the "Your updated ASDA Groceries order" layout.
// The header sits at fixed indices; item sections are anchored by the
// Ordered / Substitutes / Unavailable markers.
func extractConfirmation(msg Message, cats *categories.List) (rawOrder, error) {
	lines := msg.Lines
	out := rawOrder{template: internal.TemplateOrderConfirmation}

	if len(lines) < 4 {
		return out, &SectionTruncatedError{Section: "order header"}
	}
	out.orderNumber = lines[1]

	dateLine := lines[3]
	if len(dateLine) < confirmationDatePrefixLen {
		return out, &FieldParseError{Field: "delivery_date", Value: dateLine, Err: errors.New("date line too short")}
	}
	parsed, err := time.Parse(confirmationDateLayout, dateLine[:confirmationDatePrefixLen])
	if err != nil {
		return out, &FieldParseError{Field: "delivery_date", Value: dateLine, Err: err}
	}
	out.deliveryDate = parsed

	if out.total, err = lineAfter(lines, "total", "Total", 1); err != nil {
		return out, err
	}
	if out.subtotal, err = lineAfter(lines, "subtotal", "Subtotal*", 5); err != nil {
		return out, err
	}

	subs, _, err := scanTuples(lines, tupleRule{
		section: "Substitutes", marker: "Substitutes", offset: 3, stride: 4, optional: true,
	})
	if err != nil {
		return out, err
	}
	for _, tuple := range subs {
		out.substitutes = append(out.substitutes, rawSubstitute{
			original:    tuple[0],
			replacement: stripPrefix(tuple[1], substitutePrefixLen),
			qty:         tuple[2],
			price:       tuple[3],
		})
	}

	unavail, _, err := scanTuples(lines, tupleRule{
		section: "Unavailable", marker: "Unavailable", offset: 3, stride: 3, optional: true,
	})
	if err != nil {
		return out, err
	}
	for _, tuple := range unavail {
		// tuple[2] is a price line the layout shows but never prices usably
		out.unavailable = append(out.unavailable, rawUnavailable{name: tuple[0], qty: tuple[1]})
	}

	run, err := lineRun(lines, "Ordered", "Ordered", 3, "Multibuy Savings")
	if err != nil {
		return out, err
	}
	tuples, err := groupStride(filterItemLines(run, cats), 3, "Ordered")
	if err != nil {
		return out, err
	}
	for _, tuple := range tuples {
		out.ordered = append(out.ordered, rawOrderedItem{name: tuple[0], price: tuple[1], qty: tuple[2]})
	}

	return out, nil
}

// extractReceipt handles the "Order Receipt" layout. Substitutions and
// unavailable items are found by scanning for their marker tokens anywhere
// before "Your order"; each hit's surrounding lines form one record.
func extractReceipt(msg Message, cats *categories.List) (rawOrder, error) {
	lines := dropFirst(msg.Lines, promoLine)
	out := rawOrder{template: internal.TemplateOrderReceipt}

	// older receipts title the order number differently
	num, err := lineAfter(lines, "order number", "Order Receipt:", 1)
	if err != nil {
		var notFound *SectionNotFoundError
		if !errors.As(err, &notFound) {
			return out, err
		}
		if num, err = lineAfter(lines, "order number", "Order Number:", 1); err != nil {
			return out, err
		}
	}
	out.orderNumber = num

	if out.total, err = lineAfter(lines, "total", "Order total", 1); err != nil {
		return out, err
	}
	if out.subtotal, err = lineAfter(lines, "subtotal", "Groceries", 1); err != nil {
		return out, err
	}

	if len(msg.Date) < receiptDatePrefixLen {
		return out, &FieldParseError{Field: "delivery_date", Value: msg.Date, Err: errors.New("date header too short")}
	}
	parsed, err := time.Parse(receiptDateLayout, msg.Date[:receiptDatePrefixLen])
	if err != nil {
		return out, &FieldParseError{Field: "delivery_date", Value: msg.Date, Err: err}
	}
	out.deliveryDate = parsed

	end := findLine(lines, "Your order")
	if end < 0 {
		return out, &SectionNotFoundError{Section: "Your order", Marker: "Your order"}
	}

	for _, i := range markerHits(lines[:end], "We sent") {
		if i < 2 || i+2 >= len(lines) {
			return out, &SectionTruncatedError{Section: "We sent"}
		}
		out.substitutes = append(out.substitutes, rawSubstitute{
			original:    stripPrefix(lines[i-2], receiptItemPrefixLen),
			replacement: stripPrefix(lines[i+1], receiptItemPrefixLen),
			qty:         leadingChar(lines[i+1]),
			price:       lines[i+2],
		})
	}

	for _, i := range markerHits(lines[:end], "Not available") {
		if i < 1 {
			return out, &SectionTruncatedError{Section: "Not available"}
		}
		out.unavailable = append(out.unavailable, rawUnavailable{
			name: stripPrefix(lines[i-1], receiptItemPrefixLen),
			qty:  leadingChar(lines[i-1]),
		})
	}

	run, err := lineRun(lines, "Your order", "Your order", 1, "Groceries")
	if err != nil {
		return out, err
	}
	tuples, err := groupStride(filterItemLines(run, cats), 3, "Your order")
	if err != nil {
		return out, err
	}
	for _, tuple := range tuples {
		out.ordered = append(out.ordered, rawOrderedItem{name: tuple[0], qty: tuple[1], price: tuple[2]})
	}

	return out, nil
}

func stripPrefix(line string, n int) string {
	if len(line) > n {
		return line[n:]
	}
	return line
}

func leadingChar(line string) string {
	if line == "" {
		return ""
	}
	return line[:1]
}
