package pipeline

import (
	"errors"
	"testing"

	"gromail/internal"
	"gromail/internal/categories"
)

func confirmationLines() []string {
	return []string{
		"Thanks for shopping with us", // 0
		"789456123",                   // 1 order number
		"Delivery date",               // 2
		"12 Sep 2020 between 2pm and 4pm", // 3
		"",                 // 4
		"Ordered",          // 5
		"Quantity",         // 6
		"Price",            // 7
		"Fresh Fruit",      // 8 category heading
		"Bananas 5 Pack",   // 9
		"1.20",             // 10
		"2",                // 11
		"Milk 2.272L",      // 12
		"1.50",             // 13
		"1",                // 14
		"Multibuy Savings", // 15
		"0.00",             // 16
		"",                 // 17
		"Substitutes",      // 18
		"Quantity",         // 19
		"Price",            // 20
		"Strawberries 400g",                    // 21
		"Substituted with - Raspberries 300g", // 22
		"1",    // 23
		"2.50", // 24
		"",     // 25
		"Unavailable",     // 26
		"Quantity",        // 27
		"Price",           // 28
		"Grapes Red 500g", // 29
		"1",               // 30
		"2.00",            // 31
		"",                // 32
		"Subtotal*",       // 33
		"",                // 34
		"Multibuy savings value", // 35
		"",                 // 36
		"Delivery charge",  // 37
		"24.50",            // 38 subtotal (marker + 5)
		"Total",            // 39
		"24.00",            // 40
	}
}

func testCategories() *categories.List {
	return categories.New([]string{"Fresh Fruit", "Bakery"})
}

func TestExtractConfirmation(t *testing.T) {
	msg := Message{Subject: subjectOrderConfirmation, Lines: confirmationLines()}
	raw, err := extractOrder(msg, testCategories())
	if err != nil {
		t.Fatal(err)
	}

	if raw.orderNumber != "789456123" {
		t.Fatalf("orderNumber=%s", raw.orderNumber)
	}
	if got := raw.deliveryDate.Format("2006-01-02"); got != "2020-09-12" {
		t.Fatalf("deliveryDate=%s", got)
	}
	if raw.subtotal != "24.50" || raw.total != "24.00" {
		t.Fatalf("subtotal=%s total=%s", raw.subtotal, raw.total)
	}

	if len(raw.ordered) != 2 {
		t.Fatalf("ordered=%v", raw.ordered)
	}
	if raw.ordered[0] != (rawOrderedItem{name: "Bananas 5 Pack", price: "1.20", qty: "2"}) {
		t.Fatalf("ordered[0]=%+v", raw.ordered[0])
	}
	if raw.ordered[1] != (rawOrderedItem{name: "Milk 2.272L", price: "1.50", qty: "1"}) {
		t.Fatalf("ordered[1]=%+v", raw.ordered[1])
	}

	if len(raw.substitutes) != 1 {
		t.Fatalf("substitutes=%v", raw.substitutes)
	}
	sub := raw.substitutes[0]
	if sub.original != "Strawberries 400g" || sub.replacement != "Raspberries 300g" || sub.qty != "1" || sub.price != "2.50" {
		t.Fatalf("substitute=%+v", sub)
	}

	if len(raw.unavailable) != 1 || raw.unavailable[0] != (rawUnavailable{name: "Grapes Red 500g", qty: "1"}) {
		t.Fatalf("unavailable=%v", raw.unavailable)
	}
}

func TestExtractConfirmationNoOptionalSections(t *testing.T) {
	lines := confirmationLines()
	// blank out both optional markers
	lines[18] = "no substitutes here"
	lines[26] = "no unavailable here"

	raw, err := extractOrder(Message{Subject: subjectOrderConfirmation, Lines: lines}, testCategories())
	if err != nil {
		t.Fatal(err)
	}
	if raw.substitutes != nil || raw.unavailable != nil {
		t.Fatalf("optional sections should be absent: %+v", raw)
	}
	if len(raw.ordered) != 2 {
		t.Fatalf("ordered=%v", raw.ordered)
	}
}

func TestExtractConfirmationMissingOrdered(t *testing.T) {
	lines := confirmationLines()
	lines[5] = "not the marker"

	_, err := extractOrder(Message{Subject: subjectOrderConfirmation, Lines: lines}, testCategories())
	var notFound *SectionNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err=%v", err)
	}
	if notFound.Section != "Ordered" {
		t.Fatalf("section=%s", notFound.Section)
	}
}

func TestExtractConfirmationBadDate(t *testing.T) {
	lines := confirmationLines()
	lines[3] = "sometime next week maybe"

	_, err := extractOrder(Message{Subject: subjectOrderConfirmation, Lines: lines}, testCategories())
	var parse *FieldParseError
	if !errors.As(err, &parse) {
		t.Fatalf("err=%v", err)
	}
	if parse.Field != "delivery_date" {
		t.Fatalf("field=%s", parse.Field)
	}
}

func receiptLines() []string {
	return []string{
		"Order Receipt:", // 0
		"555666777",      // 1
		"You still get your discount", // stray promo, dropped before index math
		"",                     // 2 after drop
		"1 x Apples Gala",      // 3
		"",                     // 4
		"We sent",              // 5
		"2 x Pears Conference", // 6
		"3.00",                 // 7
		"",                     // 8
		"1 x Strawberries 400g", // 9
		"Not available",         // 10
		"2.00",                  // 11
		"",                      // 12
		"Your order",            // 13
		"Bakery",                // 14 category heading
		"Hovis Wholemeal",       // 15
		"1",                     // 16
		"1.10",                  // 17
		"Semi Skimmed Milk",     // 18
		"2",                     // 19
		"2.20",                  // 20
		"",                      // 21
		"Groceries",             // 22
		"20.50",                 // 23
		"Order total",           // 24
		"23.75",                 // 25
	}
}

func TestExtractReceipt(t *testing.T) {
	msg := Message{
		Subject: subjectOrderReceipt,
		Date:    "Sat, 12 Sep 2020 10:30:00 +0000",
		Lines:   receiptLines(),
	}
	raw, err := extractOrder(msg, testCategories())
	if err != nil {
		t.Fatal(err)
	}

	if raw.template != internal.TemplateOrderReceipt {
		t.Fatalf("template=%s", raw.template)
	}
	if raw.orderNumber != "555666777" {
		t.Fatalf("orderNumber=%s", raw.orderNumber)
	}
	if got := raw.deliveryDate.Format("2006-01-02"); got != "2020-09-12" {
		t.Fatalf("deliveryDate=%s", got)
	}
	if raw.subtotal != "20.50" || raw.total != "23.75" {
		t.Fatalf("subtotal=%s total=%s", raw.subtotal, raw.total)
	}

	if len(raw.substitutes) != 1 {
		t.Fatalf("substitutes=%v", raw.substitutes)
	}
	sub := raw.substitutes[0]
	if sub.original != "Apples Gala" || sub.replacement != "Pears Conference" || sub.qty != "2" || sub.price != "3.00" {
		t.Fatalf("substitute=%+v", sub)
	}

	if len(raw.unavailable) != 1 || raw.unavailable[0] != (rawUnavailable{name: "Strawberries 400g", qty: "1"}) {
		t.Fatalf("unavailable=%v", raw.unavailable)
	}

	if len(raw.ordered) != 2 {
		t.Fatalf("ordered=%v", raw.ordered)
	}
	if raw.ordered[0] != (rawOrderedItem{name: "Hovis Wholemeal", qty: "1", price: "1.10"}) {
		t.Fatalf("ordered[0]=%+v", raw.ordered[0])
	}
	if raw.ordered[1] != (rawOrderedItem{name: "Semi Skimmed Milk", qty: "2", price: "2.20"}) {
		t.Fatalf("ordered[1]=%+v", raw.ordered[1])
	}
}

func TestExtractReceiptOrderNumberFallback(t *testing.T) {
	lines := receiptLines()
	lines[0] = "Order Number:"

	raw, err := extractOrder(Message{
		Subject: subjectOrderReceipt,
		Date:    "Sat, 12 Sep 2020 10:30:00 +0000",
		Lines:   lines,
	}, testCategories())
	if err != nil {
		t.Fatal(err)
	}
	if raw.orderNumber != "555666777" {
		t.Fatalf("orderNumber=%s", raw.orderNumber)
	}
}

func TestExtractReceiptMissingYourOrder(t *testing.T) {
	lines := receiptLines()
	for i, line := range lines {
		if line == "Your order" {
			lines[i] = "something else"
		}
	}

	_, err := extractOrder(Message{
		Subject: subjectOrderReceipt,
		Date:    "Sat, 12 Sep 2020 10:30:00 +0000",
		Lines:   lines,
	}, testCategories())
	var notFound *SectionNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestExtractUnknownSubject(t *testing.T) {
	_, err := extractOrder(Message{Subject: "Weekly deals"}, testCategories())
	if !errors.Is(err, ErrUnknownTemplate) {
		t.Fatalf("err=%v", err)
	}
}

// Extraction is a pure function of the line sequence, so a second pass over
// the same message must yield identical records.
func TestExtractIdempotent(t *testing.T) {
	msg := Message{Subject: subjectOrderConfirmation, Lines: confirmationLines()}
	first, err := extractOrder(msg, testCategories())
	if err != nil {
		t.Fatal(err)
	}
	second, err := extractOrder(msg, testCategories())
	if err != nil {
		t.Fatal(err)
	}
	if len(first.ordered) != len(second.ordered) || len(first.substitutes) != len(second.substitutes) {
		t.Fatalf("first=%+v second=%+v", first, second)
	}
	for i := range first.ordered {
		if first.ordered[i] != second.ordered[i] {
			t.Fatalf("ordered[%d] differs", i)
		}
	}
}
