package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mrlokans/kindle-enex/internal/audit"
	"github.com/mrlokans/kindle-enex/internal/crypto"
	"github.com/mrlokans/kindle-enex/internal/database/conversions"
	"github.com/mrlokans/kindle-enex/internal/entities"
	"github.com/mrlokans/kindle-enex/internal/exporters"
	"github.com/mrlokans/kindle-enex/internal/kindle"
	"github.com/mrlokans/kindle-enex/internal/utils"
)

var (
	ErrEmptyInput         = errors.New("no highlights text provided")
	ErrInputTooLarge      = errors.New("highlights text is too large")
	ErrConversionNotFound = errors.New("conversion not found")
	ErrExportFileMissing  = errors.New("export file no longer exists")
)

// Request sources recorded in history and audit snapshots.
const (
	SourceWeb = "web"
	SourceAPI = "api"
	SourceCLI = "cli"
)

const successMessage = "Successfully converted your highlights to the Evernote file named %s"

// ConvertRequest is one highlights paste to convert.
type ConvertRequest struct {
	Text   string
	Source string
}

// ConvertResult describes a finished conversion.
type ConvertResult struct {
	ID         string                  `json:"id,omitempty"`
	Filename   string                  `json:"filename"`
	Path       string                  `json:"-"`
	Book       entities.BookProperties `json:"book"`
	Highlights int                     `json:"highlights"`
	Notes      int                     `json:"notes"`
	Bytes      int                     `json:"bytes"`
	// DuplicateOf is set when the same text was converted before.
	DuplicateOf string `json:"duplicate_of,omitempty"`
	Message     string `json:"message"`

	// Parsed holds the highlights that went into the export.
	Parsed *kindle.Result `json:"-"`
}

// FailureMessage renders err the way it is shown to the user.
func FailureMessage(err error) string {
	var parseErr *kindle.ParseError
	if errors.As(err, &parseErr) {
		return "Error: " + parseErr.Error()
	}
	return "Error: " + err.Error()
}

// ConvertService runs the parse and export pipeline and stores the result.
type ConvertService struct {
	parser        *kindle.Parser
	exporter      exporters.NoteExporter
	store         ConversionStore
	auditor       ConversionAuditor
	outputDir     string
	maxInputBytes int64
}

// ConvertServiceConfig wires a ConvertService. Store and Auditor are optional.
type ConvertServiceConfig struct {
	Exporter      exporters.NoteExporter
	Store         ConversionStore
	Auditor       ConversionAuditor
	OutputDir     string
	MaxInputBytes int64
}

func NewConvertService(cfg ConvertServiceConfig) *ConvertService {
	exporter := cfg.Exporter
	if exporter == nil {
		exporter = exporters.NewEnexExporter()
	}
	return &ConvertService{
		parser:        kindle.NewParser(),
		exporter:      exporter,
		store:         cfg.Store,
		auditor:       cfg.Auditor,
		outputDir:     cfg.OutputDir,
		maxInputBytes: cfg.MaxInputBytes,
	}
}

// Render parses text and returns the ENEX document without touching storage.
func (s *ConvertService) Render(text string) (string, *kindle.Result, error) {
	if err := s.validate(text); err != nil {
		return "", nil, err
	}
	result, err := s.parser.ParseText(text)
	if err != nil {
		return "", nil, err
	}
	doc, err := s.exporter.Export(result.Book, result.Highlights)
	if err != nil {
		return "", nil, fmt.Errorf("failed to export highlights: %w", err)
	}
	return doc, result, nil
}

// Convert parses the request text, writes the .enex file into the output
// directory and records the conversion. No file is created when parsing fails.
//
// With a store configured every conversion gets its own directory named by
// its id, so re-converting the same book never overwrites an earlier export.
func (s *ConvertService) Convert(ctx context.Context, req ConvertRequest) (*ConvertResult, error) {
	inputHash := crypto.Fingerprint(req.Text)

	var conversion *entities.Conversion
	dir := s.outputDir
	if s.store != nil {
		now := time.Now()
		id, err := conversions.NewID(now)
		if err != nil {
			return nil, fmt.Errorf("failed to generate conversion id: %w", err)
		}
		conversion = &entities.Conversion{PublicID: id, CreatedAt: now}
		dir = filepath.Join(s.outputDir, id)
	}

	res, err := s.convert(ctx, req.Text, dir)
	if err != nil {
		if conversion != nil {
			// only succeeds while the directory is still empty
			os.Remove(dir)
		}
		s.recordFailure(req, inputHash, err)
		return nil, err
	}

	if conversion != nil {
		previous, err := s.store.FindLatestByInputHash(inputHash)
		switch {
		case err == nil:
			res.DuplicateOf = previous.PublicID
			log.Printf("Conversion: identical input was already converted as %s", previous.PublicID)
		case !errors.Is(err, conversions.ErrNotFound):
			log.Printf("Conversion: failed to look up earlier conversions: %v", err)
		}

		conversion.Status = entities.ConversionStatusCompleted
		conversion.Title = res.Book.Title
		conversion.Author = res.Book.Author
		conversion.LastAnnotated = res.Book.LastAnnotated
		conversion.HighlightCount = res.Highlights
		conversion.NoteCount = res.Notes
		conversion.Filename = res.Filename
		conversion.FilePath = res.Path
		conversion.InputHash = inputHash
		if err := s.store.Save(conversion); err != nil {
			return nil, fmt.Errorf("failed to record conversion: %w", err)
		}
		res.ID = conversion.PublicID
	}

	s.audit(audit.ConversionRecord{
		ConversionID: res.ID,
		Source:       req.Source,
		InputHash:    inputHash,
		Input:        req.Text,
		Outcome:      string(entities.ConversionStatusCompleted),
		Filename:     res.Filename,
	})

	log.Printf("Conversion: wrote %d notes for %q to %s", res.Highlights, res.Book.Title, res.Path)
	return res, nil
}

func (s *ConvertService) convert(ctx context.Context, text, dir string) (*ConvertResult, error) {
	if err := s.validate(text); err != nil {
		return nil, err
	}

	parsed, err := s.parser.ParseText(text)
	if err != nil {
		return nil, err
	}
	warnOnCountMismatch(parsed)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filename := utils.EnexFilename(parsed.Book.Title, parsed.Book.LastAnnotated)
	path := filepath.Join(dir, filename)

	exported, err := s.writeExport(path, parsed)
	if err != nil {
		return nil, err
	}

	return &ConvertResult{
		Filename:   filename,
		Path:       path,
		Book:       parsed.Book,
		Highlights: len(parsed.Highlights),
		Notes:      exported.NotesWithNote,
		Bytes:      exported.BytesWritten,
		Message:    fmt.Sprintf(successMessage, filename),
		Parsed:     parsed,
	}, nil
}

// writeExport renders into a temp file next to path and renames it into place,
// so a failed export never leaves a truncated .enex behind.
func (s *ConvertService) writeExport(path string, parsed *kindle.Result) (exporters.ExportResult, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return exporters.ExportResult{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".export-*.enex")
	if err != nil {
		return exporters.ExportResult{}, fmt.Errorf("failed to create export file: %w", err)
	}
	tmpName := tmp.Name()

	exported, err := s.exporter.ExportTo(tmp, parsed.Book, parsed.Highlights)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpName)
		return exporters.ExportResult{}, fmt.Errorf("failed to write export file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return exporters.ExportResult{}, fmt.Errorf("failed to move export file into place: %w", err)
	}
	return exported, nil
}

// Get returns a recorded conversion by its public id.
func (s *ConvertService) Get(id string) (*entities.Conversion, error) {
	if s.store == nil {
		return nil, ErrConversionNotFound
	}
	conversion, err := s.store.GetByPublicID(id)
	if errors.Is(err, conversions.ErrNotFound) {
		return nil, ErrConversionNotFound
	}
	return conversion, err
}

// List returns recorded conversions newest first.
func (s *ConvertService) List(limit, offset int) ([]entities.Conversion, int64, error) {
	if s.store == nil {
		return []entities.Conversion{}, 0, nil
	}
	return s.store.List(limit, offset)
}

// ExportFile returns the completed conversion and checks its file still exists.
func (s *ConvertService) ExportFile(id string) (*entities.Conversion, error) {
	conversion, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if conversion.Status != entities.ConversionStatusCompleted || conversion.FilePath == "" {
		return nil, ErrExportFileMissing
	}
	if _, err := os.Stat(conversion.FilePath); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrExportFileMissing
		}
		return nil, err
	}
	return conversion, nil
}

func (s *ConvertService) validate(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyInput
	}
	if s.maxInputBytes > 0 && int64(len(text)) > s.maxInputBytes {
		return fmt.Errorf("%w: %d bytes, limit is %d", ErrInputTooLarge, len(text), s.maxInputBytes)
	}
	return nil
}

func (s *ConvertService) recordFailure(req ConvertRequest, inputHash string, convErr error) {
	kind := string(kindle.KindOf(convErr))
	var id string

	if s.store != nil {
		conversion := &entities.Conversion{
			Status:    entities.ConversionStatusFailed,
			InputHash: inputHash,
			ErrorKind: kind,
			ErrorMsg:  convErr.Error(),
		}
		if err := s.store.Save(conversion); err != nil {
			log.Printf("Conversion: failed to record failed conversion: %v", err)
		} else {
			id = conversion.PublicID
		}
	}

	s.audit(audit.ConversionRecord{
		ConversionID: id,
		Source:       req.Source,
		InputHash:    inputHash,
		Input:        req.Text,
		Outcome:      string(entities.ConversionStatusFailed),
		ErrorKind:    kind,
		Error:        convErr.Error(),
	})
}

func (s *ConvertService) audit(record audit.ConversionRecord) {
	if s.auditor == nil {
		return
	}
	if _, err := s.auditor.RecordConversion(record); err != nil {
		log.Printf("Conversion: failed to save audit snapshot: %v", err)
	}
}

func warnOnCountMismatch(parsed *kindle.Result) {
	if parsed.Book.PassageCount != len(parsed.Highlights) {
		log.Printf("Conversion: warning: header announces %d highlighted passages but %d were found",
			parsed.Book.PassageCount, len(parsed.Highlights))
	}
	if notes := parsed.NoteCount(); parsed.Book.NoteCount != notes {
		log.Printf("Conversion: warning: header announces %d notes but %d were found",
			parsed.Book.NoteCount, notes)
	}
}
