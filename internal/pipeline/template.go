package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"gromail/internal"
)

const (
	subjectOrderConfirmation = "Your updated ASDA Groceries order"
	subjectOrderReceipt      = "Order Receipt"
)

// ErrUnknownTemplate means the subject matched neither known vendor layout.
// Guessing a template would misread every offset, so this is fatal for the
// message.
var ErrUnknownTemplate = errors.New("unknown email template")

func ClassifyTemplate(subject string) (internal.Template, error) {
	switch strings.TrimSpace(subject) {
	case subjectOrderConfirmation:
		return internal.TemplateOrderConfirmation, nil
	case subjectOrderReceipt:
		return internal.TemplateOrderReceipt, nil
	default:
		return "", fmt.Errorf("%w: subject %q", ErrUnknownTemplate, subject)
	}
}

// KnownSubject reports whether a subject belongs to one of the two grocery
// templates. Connectors use it to skip unrelated mailbox traffic at fetch time.
func KnownSubject(subject string) bool {
	_, err := ClassifyTemplate(subject)
	return err == nil
}
