package exporters

import (
	"io"

	"github.com/mrlokans/kindle-enex/internal/entities"
)

// NoteExporter renders one book's highlights into a note archive.
type NoteExporter interface {
	Export(book entities.BookProperties, highlights []entities.Highlight) (string, error)
	ExportTo(w io.Writer, book entities.BookProperties, highlights []entities.Highlight) (ExportResult, error)
}

type ExportResult struct {
	NotesExported int `json:"notes_exported"`
	NotesWithNote int `json:"notes_with_note"`
	BytesWritten  int `json:"bytes_written"`
}
