package entities

import "time"

type ConversionStatus string

const (
	ConversionStatusCompleted ConversionStatus = "completed"
	ConversionStatusFailed    ConversionStatus = "failed"
)

// Conversion is a history record of one highlights-to-ENEX run.
type Conversion struct {
	ID             uint             `gorm:"primaryKey" json:"-"`
	PublicID       string           `gorm:"uniqueIndex;size:26" json:"id"` // ULID
	Status         ConversionStatus `gorm:"size:20;default:'completed'" json:"status"`
	Title          string           `gorm:"index;size:512" json:"title"`
	Author         string           `gorm:"size:256" json:"author"`
	LastAnnotated  string           `gorm:"size:128" json:"last_annotated"`
	HighlightCount int              `json:"highlight_count"`
	NoteCount      int              `json:"note_count"`
	Filename       string           `gorm:"size:512" json:"filename,omitempty"`
	FilePath       string           `gorm:"size:1024" json:"-"`
	InputHash      string           `gorm:"index;size:64" json:"input_hash"`
	ErrorKind      string           `gorm:"size:32" json:"error_kind,omitempty"`
	ErrorMsg       string           `gorm:"type:text" json:"error,omitempty"`
	CreatedAt      time.Time        `gorm:"index" json:"created_at"`
}

func (Conversion) TableName() string {
	return "conversions"
}
