package notifier

import (
	"fmt"
	"html"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/benny59/architetti/internal/model"
)

// MaxSummaryWidth bounds the summary's display width in a message.
const MaxSummaryWidth = 1000

// Format renders rec as a Telegram HTML message. The detail link, when the
// record has one, is appended after the fields.
func Format(rec model.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Titolo:</b> <code>%s</code>\n", html.EscapeString(rec.Title))
	fmt.Fprintf(&b, "<b>Data:</b> <code>%s</code>\n", html.EscapeString(rec.Date))
	fmt.Fprintf(&b, "<b>Categoria:</b> <code>%s</code>\n", html.EscapeString(rec.Category))
	fmt.Fprintf(&b, "<b>Riassunto:</b> <i>%s</i>\n",
		html.EscapeString(runewidth.Truncate(rec.Summary, MaxSummaryWidth, "…")))
	if rec.HasURL() {
		fmt.Fprintf(&b, "<a href=\"%s\">Link al concorso</a>\n", html.EscapeString(rec.URL))
	}
	return b.String()
}
