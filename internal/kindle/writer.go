package kindle

import (
	"fmt"
	"io"
	"strings"

	"github.com/mrlokans/kindle-enex/internal/entities"
)

// Format renders book and highlights in the layout Kindle uses for
// "Your Notes and Highlights". The header counts are taken from the
// highlights, not from book.
func Format(book entities.BookProperties, highlights []entities.Highlight) string {
	var b strings.Builder
	_ = Write(&b, book, highlights)
	return b.String()
}

// Write is Format for an io.Writer.
func Write(w io.Writer, book entities.BookProperties, highlights []entities.Highlight) error {
	notes := 0
	for _, h := range highlights {
		if h.HasNote() {
			notes++
		}
	}

	if _, err := fmt.Fprintf(w, "%s by %s\nYou have %d highlighted passages\nYou have %d notes\nLast annotated on %s\n\n",
		book.Title, book.Author, len(highlights), notes, book.LastAnnotated); err != nil {
		return err
	}

	for _, h := range highlights {
		if _, err := fmt.Fprintf(w, "%s%s%s • Delete this highlight\n", h.Quote, readMoreMarker, h.Location); err != nil {
			return err
		}
		follow := addANoteLine
		if h.HasNote() {
			follow = "Note: " + h.Note + " Edit"
		}
		if _, err := fmt.Fprintln(w, follow); err != nil {
			return err
		}
	}
	return nil
}
