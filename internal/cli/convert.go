package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/kindle-enex/internal/audit"
	"github.com/mrlokans/kindle-enex/internal/config"
	"github.com/mrlokans/kindle-enex/internal/database"
	"github.com/mrlokans/kindle-enex/internal/database/conversions"
	"github.com/mrlokans/kindle-enex/internal/exporters"
	"github.com/mrlokans/kindle-enex/internal/kindle"
	"github.com/mrlokans/kindle-enex/internal/services"
)

const stdinPath = "-"

// ConvertCommand converts a Kindle "Your Notes and Highlights" text export
// into an Evernote .enex file.
type ConvertCommand struct {
	InputPath    string
	OutputDir    string
	DatabasePath string
	ToStdout     bool
	NoHistory    bool
	Verbose      bool

	cfg    *config.Config
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func NewConvertCommand(cfg *config.Config) *ConvertCommand {
	return &ConvertCommand{
		cfg:    cfg,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

func (cmd *ConvertCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.SetOutput(cmd.stderr)

	fs.StringVar(&cmd.InputPath, "file", "", "Path to the highlights text file, or - for stdin (required)")
	fs.StringVar(&cmd.OutputDir, "output", cmd.cfg.Export.OutputDir, "Directory to write the .enex file to")
	fs.StringVar(&cmd.DatabasePath, "db", cmd.cfg.Database.Path, "Path to the conversion history database")
	fs.BoolVar(&cmd.ToStdout, "stdout", false, "Write the ENEX document to stdout instead of a file")
	fs.BoolVar(&cmd.NoHistory, "no-history", false, "Do not record the conversion in the history database")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Print every parsed highlight")

	fs.Usage = func() {
		fmt.Fprintf(cmd.stderr, "Usage: %s convert -file <path|-> [options]\n\n", os.Args[0])
		fmt.Fprintf(cmd.stderr, "Convert the text Kindle shows under \"Your Notes and Highlights\" into an\n")
		fmt.Fprintf(cmd.stderr, "Evernote export (.enex) with one note per highlight.\n\n")
		fmt.Fprintf(cmd.stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(cmd.stderr, "\nExamples:\n")
		fmt.Fprintf(cmd.stderr, "  %s convert -file highlights.txt\n", os.Args[0])
		fmt.Fprintf(cmd.stderr, "  pbpaste | %s convert -file - -stdout > book.enex\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.InputPath == "" {
		return fmt.Errorf("required flag -file not provided")
	}

	return nil
}

func (cmd *ConvertCommand) Run() error {
	text, err := cmd.readInput()
	if err != nil {
		return err
	}

	exporter := exporters.NewEnexExporter(exporters.WithApplication(cmd.cfg.Export.Application))

	if cmd.ToStdout {
		service := services.NewConvertService(services.ConvertServiceConfig{
			Exporter:      exporter,
			MaxInputBytes: cmd.cfg.Export.MaxInputBytes,
		})
		doc, parsed, err := service.Render(text)
		if err != nil {
			return err
		}
		cmd.printHighlights(parsed)
		_, err = io.WriteString(cmd.stdout, doc)
		return err
	}

	svcCfg := services.ConvertServiceConfig{
		Exporter:      exporter,
		OutputDir:     cmd.OutputDir,
		MaxInputBytes: cmd.cfg.Export.MaxInputBytes,
	}

	if !cmd.NoHistory {
		db, err := database.NewDatabase(cmd.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer db.Close()
		svcCfg.Store = conversions.NewRepository(db.DB)
	}

	if cmd.cfg.Audit.Enabled {
		svcCfg.Auditor = audit.NewAuditor(cmd.cfg.Audit.Dir)
	}

	service := services.NewConvertService(svcCfg)
	res, err := service.Convert(context.Background(), services.ConvertRequest{
		Text:   text,
		Source: services.SourceCLI,
	})
	if err != nil {
		return err
	}

	cmd.printHighlights(res.Parsed)

	fmt.Fprintln(cmd.stdout, res.Message)
	fmt.Fprintf(cmd.stdout, "Book: %s by %s, %d highlights (%d with notes)\n",
		res.Book.Title, res.Book.Author, res.Highlights, res.Notes)
	fmt.Fprintf(cmd.stdout, "Written to: %s\n", res.Path)
	if res.ID != "" {
		fmt.Fprintf(cmd.stdout, "Conversion id: %s\n", res.ID)
	}
	return nil
}

func (cmd *ConvertCommand) readInput() (string, error) {
	var r io.Reader
	if cmd.InputPath == stdinPath {
		r = cmd.stdin
	} else {
		file, err := os.Open(cmd.InputPath)
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("highlights file not found: %s", cmd.InputPath)
		}
		if err != nil {
			return "", fmt.Errorf("failed to open highlights file: %w", err)
		}
		defer file.Close()
		r = file
	}

	limit := cmd.cfg.Export.MaxInputBytes
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read highlights: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return "", fmt.Errorf("%w: limit is %d bytes", services.ErrInputTooLarge, limit)
	}
	return string(data), nil
}

// printHighlights goes to stderr so -stdout output stays a clean document.
func (cmd *ConvertCommand) printHighlights(parsed *kindle.Result) {
	if !cmd.Verbose || parsed == nil {
		return
	}
	fmt.Fprintf(cmd.stderr, "%q by %s, last annotated on %s\n",
		parsed.Book.Title, parsed.Book.Author, parsed.Book.LastAnnotated)
	for i, h := range parsed.Highlights {
		fmt.Fprintf(cmd.stderr, "%3d. location %s: %s\n", i+1, h.Location, h.Quote)
		if h.HasNote() {
			fmt.Fprintf(cmd.stderr, "     note: %s\n", h.Note)
		}
	}
}
