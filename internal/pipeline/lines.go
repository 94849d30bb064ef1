package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"

	"gromail/internal/util"
)

// Message is one grocery email reduced to the parts the extractors need: the
// subject and date headers plus the rendered text of the first table row of
// the HTML body, stripped to ASCII and split into lines. Line order is the
// sole addressing mechanism downstream, so it is preserved exactly.
type Message struct {
	Subject string
	Date    string
	Lines   []string
}

var blockTags = map[string]struct{}{
	"p": {}, "div": {}, "tr": {}, "td": {}, "th": {}, "li": {},
	"table": {}, "h1": {}, "h2": {}, "h3": {}, "h4": {},
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func ReadMessage(raw []byte) (Message, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return Message{}, fmt.Errorf("read mail envelope: %w", err)
	}

	body := env.HTML
	if strings.TrimSpace(body) == "" {
		body = env.Text
	}
	if strings.TrimSpace(body) == "" {
		return Message{}, errors.New("message has no body")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return Message{}, fmt.Errorf("parse message body: %w", err)
	}

	row := doc.Find("tr").First()
	if row.Length() == 0 {
		return Message{}, errors.New("message body has no table row")
	}

	text := strings.Builder{}
	appendNodeText(row, &text)
	content := util.StripNonASCII(text.String())

	return Message{
		Subject: env.GetHeader("Subject"),
		Date:    env.GetHeader("Date"),
		Lines:   util.SplitLines(content),
	}, nil
}

// appendNodeText renders an HTML fragment the way a mail client lays it out:
// text content in document order, with a line break after each block element.
// Whitespace inside text nodes is collapsed so that markup indentation never
// manufactures blank lines; only empty block elements do that.
func appendNodeText(sel *goquery.Selection, out *strings.Builder) {
	sel.Contents().Each(func(_ int, child *goquery.Selection) {
		name := goquery.NodeName(child)
		if name == "#text" {
			out.WriteString(whitespaceRun.ReplaceAllString(child.Text(), " "))
			return
		}
		if name == "br" {
			out.WriteString("\n")
			return
		}
		appendNodeText(child, out)
		if _, block := blockTags[name]; block {
			out.WriteString("\n")
		}
	})
}
