package exporters

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mrlokans/kindle-enex/internal/entities"
)

const (
	enexDoctype = `<!DOCTYPE en-export SYSTEM "http://xml.evernote.com/pub/evernote-export3.dtd">`
	enmlHeader  = `<?xml version="1.0" encoding="UTF-8" standalone="no"?>` + "\n" +
		`<!DOCTYPE en-note SYSTEM "http://xml.evernote.com/pub/enml2.dtd">` + "\n"

	// enexDateLayout is the compact UTC timestamp Evernote uses in export-date.
	enexDateLayout = "20060102T150405Z"

	noteSpanStyle = "background-color: rgb(255, 250, 165);-evernote-highlight:true;"

	TagBookHighlight = "book-highlight"
	TagHasNote       = "has note"

	DefaultApplication = "kindle-enex"
	DefaultVersion     = "0.1"
)

type enexDocument struct {
	XMLName     xml.Name   `xml:"en-export"`
	ExportDate  string     `xml:"export-date,attr"`
	Application string     `xml:"application,attr"`
	Version     string     `xml:"version,attr"`
	Notes       []enexNote `xml:"note"`
}

type enexNote struct {
	Title   string      `xml:"title"`
	Content enexContent `xml:"content"`
	Tags    []string    `xml:"tag"`
}

// enexContent is written as CDATA; encoding/xml splits any "]]>" inside it
// across two sections so the body never terminates early.
type enexContent struct {
	Body string `xml:",cdata"`
}

// EnexExporter writes Evernote export (.enex) documents, one note per highlight.
type EnexExporter struct {
	application string
	version     string
	now         func() time.Time
}

type EnexOption func(*EnexExporter)

// WithApplication sets the application attribute of <en-export>.
func WithApplication(name string) EnexOption {
	return func(e *EnexExporter) {
		if name != "" {
			e.application = name
		}
	}
}

// WithVersion sets the version attribute of <en-export>.
func WithVersion(version string) EnexOption {
	return func(e *EnexExporter) {
		if version != "" {
			e.version = version
		}
	}
}

// WithClock overrides the source of the export-date attribute.
func WithClock(now func() time.Time) EnexOption {
	return func(e *EnexExporter) {
		if now != nil {
			e.now = now
		}
	}
}

func NewEnexExporter(opts ...EnexOption) *EnexExporter {
	e := &EnexExporter{
		application: DefaultApplication,
		version:     DefaultVersion,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BuildNote derives the note title, body and tags for a single highlight.
func BuildNote(book entities.BookProperties, highlight entities.Highlight) entities.ExportNote {
	content := highlight.Quote
	tags := []string{TagBookHighlight, book.Title, book.Author}

	if highlight.HasNote() {
		content += fmt.Sprintf("\n<br/>\n<br/>\n<br/><span style=\"%s\">Note: %s</span>", noteSpanStyle, highlight.Note)
		tags = append(tags, TagHasNote)
	}

	return entities.ExportNote{
		Title:   book.Title + "; location " + highlight.Location,
		Content: content,
		Tags:    tags,
	}
}

// Export returns the complete .enex document as a string.
func (e *EnexExporter) Export(book entities.BookProperties, highlights []entities.Highlight) (string, error) {
	var builder strings.Builder
	if _, err := e.ExportTo(&builder, book, highlights); err != nil {
		return "", err
	}
	return builder.String(), nil
}

// ExportTo writes the .enex document to w.
func (e *EnexExporter) ExportTo(w io.Writer, book entities.BookProperties, highlights []entities.Highlight) (ExportResult, error) {
	doc := enexDocument{
		ExportDate:  e.now().UTC().Format(enexDateLayout),
		Application: e.application,
		Version:     e.version,
		Notes:       make([]enexNote, 0, len(highlights)),
	}

	result := ExportResult{}
	for _, highlight := range highlights {
		note := BuildNote(book, highlight)
		doc.Notes = append(doc.Notes, enexNote{
			Title:   note.Title,
			Content: enexContent{Body: enmlDocument(note.Content)},
			Tags:    note.Tags,
		})
		result.NotesExported++
		if highlight.HasNote() {
			result.NotesWithNote++
		}
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return ExportResult{}, fmt.Errorf("failed to encode enex document: %w", err)
	}

	var out strings.Builder
	out.WriteString(xml.Header)
	out.WriteString(enexDoctype)
	out.WriteString("\n")
	out.Write(body)
	out.WriteString("\n")

	n, err := io.WriteString(w, out.String())
	result.BytesWritten = n
	if err != nil {
		return result, fmt.Errorf("failed to write enex document: %w", err)
	}
	return result, nil
}

// enmlDocument wraps note content in the single-note ENML document Evernote
// expects inside <content>. The content is markup and is not escaped, but
// characters XML cannot carry are replaced with U+FFFD.
func enmlDocument(content string) string {
	return enmlHeader + "<en-note>\n<div>" + strings.Map(xmlSafeRune, content) + "</div>\n</en-note>\n"
}

// xmlSafeRune maps runes outside the XML 1.0 Char production to U+FFFD,
// matching what encoding/xml does for escaped text.
func xmlSafeRune(r rune) rune {
	switch {
	case r == '\t', r == '\n', r == '\r',
		r >= 0x20 && r <= 0xD7FF,
		r >= 0xE000 && r <= 0xFFFD,
		r >= 0x10000 && r <= 0x10FFFF:
		return r
	}
	return '\uFFFD'
}
