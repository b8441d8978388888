package entities

// BookProperties holds the header of a Kindle highlights export.
// It is filled once from the first four lines and not changed afterwards.
type BookProperties struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	PassageCount  int    `json:"passage_count"`
	NoteCount     int    `json:"note_count"`
	LastAnnotated string `json:"last_annotated"`
}

// Highlight is a single quoted passage. Location is kept as the digit string
// found in the export, Note is empty when the passage has no annotation.
type Highlight struct {
	Quote    string `json:"quote"`
	Location string `json:"location"`
	Note     string `json:"note,omitempty"`
}

func (h Highlight) HasNote() bool {
	return h.Note != ""
}

// ExportNote is the per-highlight view rendered into an Evernote export.
type ExportNote struct {
	Title   string
	Content string
	Tags    []string
}
