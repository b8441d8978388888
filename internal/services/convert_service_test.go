package services

import (
	"context"
	"encoding/xml"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mrlokans/kindle-enex/internal/audit"
	"github.com/mrlokans/kindle-enex/internal/database/conversions"
	"github.com/mrlokans/kindle-enex/internal/entities"
	"github.com/mrlokans/kindle-enex/internal/exporters"
	"github.com/mrlokans/kindle-enex/internal/kindle"
	"github.com/mrlokans/kindle-enex/internal/tasks"
)

const scenarioText = "My Book by Jane Doe\n" +
	"You have 1 highlighted passage\n" +
	"You have 1 note\n" +
	"Last annotated on January 1, 2020\n" +
	"Hello world.Read more at location 123 • Delete this highlight\n" +
	"Note: Nice Edit\n"

type testEnv struct {
	service   *ConvertService
	db        *gorm.DB
	repo      *conversions.Repository
	outputDir string
	auditDir  string
}

func setupService(t *testing.T) testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.Conversion{}))

	repo := conversions.NewRepository(db)
	outputDir := filepath.Join(t.TempDir(), "enex")
	auditDir := filepath.Join(t.TempDir(), "audit")

	clock := func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	service := NewConvertService(ConvertServiceConfig{
		Exporter:      exporters.NewEnexExporter(exporters.WithClock(clock)),
		Store:         repo,
		Auditor:       audit.NewAuditor(auditDir),
		OutputDir:     outputDir,
		MaxInputBytes: 4096,
	})

	return testEnv{service: service, db: db, repo: repo, outputDir: outputDir, auditDir: auditDir}
}

func TestConvertService_Convert(t *testing.T) {
	env := setupService(t)

	res, err := env.service.Convert(context.Background(), ConvertRequest{Text: scenarioText, Source: SourceCLI})
	require.NoError(t, err)

	assert.Equal(t, "My Book_January 1, 2020.enex", res.Filename)
	assert.Equal(t, filepath.Join(env.outputDir, res.ID, res.Filename), res.Path)
	assert.Equal(t, 1, res.Highlights)
	assert.Equal(t, 1, res.Notes)
	assert.Equal(t, "Successfully converted your highlights to the Evernote file named My Book_January 1, 2020.enex", res.Message)
	assert.Len(t, res.ID, 26)
	assert.Empty(t, res.DuplicateOf)

	content, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, res.Bytes, len(content))
	assert.Contains(t, string(content), "<title>My Book; location 123</title>")
	assert.Contains(t, string(content), "Note: Nice</span>")

	var doc struct {
		Notes []struct{} `xml:"note"`
	}
	require.NoError(t, xml.Unmarshal(content, &doc))
	assert.Len(t, doc.Notes, 1)

	t.Run("records history", func(t *testing.T) {
		stored, err := env.repo.GetByPublicID(res.ID)
		require.NoError(t, err)

		assert.Equal(t, entities.ConversionStatusCompleted, stored.Status)
		assert.Equal(t, "My Book", stored.Title)
		assert.Equal(t, "Jane Doe", stored.Author)
		assert.Equal(t, res.Path, stored.FilePath)
		assert.Len(t, stored.InputHash, 64)
	})

	t.Run("writes audit snapshot", func(t *testing.T) {
		entries, err := os.ReadDir(env.auditDir)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("no temp files remain", func(t *testing.T) {
		entries, err := os.ReadDir(filepath.Join(env.outputDir, res.ID))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, res.Filename, entries[0].Name())
	})

	t.Run("flags repeated input", func(t *testing.T) {
		again, err := env.service.Convert(context.Background(), ConvertRequest{Text: scenarioText})
		require.NoError(t, err)
		assert.Equal(t, res.ID, again.DuplicateOf)
		assert.NotEqual(t, res.ID, again.ID)
		assert.NotEqual(t, res.Path, again.Path)
		assert.Equal(t, res.Filename, again.Filename)
	})
}

func TestConvertService_Convert_SameBookKeepsSeparateExports(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	old, err := env.service.Convert(ctx, ConvertRequest{Text: scenarioText})
	require.NoError(t, err)
	updated := strings.Replace(scenarioText, "Note: Nice Edit", "Note: Nicer Edit", 1)
	fresh, err := env.service.Convert(ctx, ConvertRequest{Text: updated})
	require.NoError(t, err)

	require.NotEqual(t, old.Path, fresh.Path)

	oldContent, err := os.ReadFile(old.Path)
	require.NoError(t, err)
	assert.Contains(t, string(oldContent), "Note: Nice</span>")

	t.Run("retention cleanup leaves newer export downloadable", func(t *testing.T) {
		require.NoError(t, env.db.Model(&entities.Conversion{}).
			Where("public_id = ?", old.ID).
			Update("created_at", time.Now().Add(-40*24*time.Hour)).Error)

		process := tasks.CleanupConversionsProcessor(env.repo, nil)
		require.NoError(t, process(ctx, tasks.CleanupConversionsTask{RetentionDays: 30}))

		conversion, err := env.service.ExportFile(fresh.ID)
		require.NoError(t, err)
		assert.Equal(t, fresh.Path, conversion.FilePath)

		_, err = env.service.Get(old.ID)
		assert.ErrorIs(t, err, ErrConversionNotFound)

		_, err = os.Stat(filepath.Dir(old.Path))
		assert.True(t, os.IsNotExist(err), "per-conversion directory is removed")
		_, err = os.Stat(env.outputDir)
		assert.NoError(t, err)
	})
}

type failingLookupStore struct {
	*conversions.Repository
}

func (failingLookupStore) FindLatestByInputHash(string) (*entities.Conversion, error) {
	return nil, errors.New("database is locked")
}

func TestConvertService_Convert_DuplicateLookupError(t *testing.T) {
	env := setupService(t)
	service := NewConvertService(ConvertServiceConfig{
		Store:     failingLookupStore{env.repo},
		OutputDir: env.outputDir,
	})

	res, err := service.Convert(context.Background(), ConvertRequest{Text: scenarioText})
	require.NoError(t, err)
	assert.Empty(t, res.DuplicateOf)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, 1, res.Parsed.NoteCount())
}

func TestConvertService_Convert_SampleFile(t *testing.T) {
	env := setupService(t)

	text, err := os.ReadFile("../kindle/testdata/sample_highlights.txt")
	require.NoError(t, err)

	res, err := env.service.Convert(context.Background(), ConvertRequest{Text: string(text)})
	require.NoError(t, err)

	assert.Equal(t, "The Pragmatic Programmer From Journeyman to Master_March 5, 2016.enex", res.Filename)
	assert.Equal(t, 4, res.Highlights)
	assert.Equal(t, 2, res.Notes)
	assert.Equal(t, "Andrew Hunt and David Thomas", res.Book.Author)
}

func TestConvertService_Convert_Failures(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantErr  error
		wantKind string
	}{
		{
			name:    "empty input",
			text:    "   \n",
			wantErr: ErrEmptyInput,
		},
		{
			name:    "too large",
			text:    strings.Repeat("x", 5000),
			wantErr: ErrInputTooLarge,
		},
		{
			name:     "malformed header",
			text:     "no author here\nYou have 1 highlighted passage\nYou have 0 notes\nLast annotated on today\n",
			wantErr:  kindle.ErrMalformedHeader,
			wantKind: "malformed_header",
		},
		{
			name:     "orphan note",
			text:     "A by B\nYou have 0 highlighted passages\nYou have 1 note\nLast annotated on today\nNote: lonely Edit\n",
			wantErr:  kindle.ErrOrphanNote,
			wantKind: "orphan_note",
		},
		{
			name:     "unrecognized line",
			text:     "A by B\nYou have 0 highlighted passages\nYou have 0 notes\nLast annotated on today\nsomething odd\n",
			wantErr:  kindle.ErrUnrecognizedLine,
			wantKind: "unrecognized_line",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupService(t)

			res, err := env.service.Convert(context.Background(), ConvertRequest{Text: tt.text})
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)

			_, statErr := os.Stat(env.outputDir)
			assert.True(t, os.IsNotExist(statErr), "no output should be written")

			history, total, err := env.repo.List(10, 0)
			require.NoError(t, err)
			require.Equal(t, int64(1), total)
			assert.Equal(t, entities.ConversionStatusFailed, history[0].Status)
			assert.Equal(t, tt.wantKind, history[0].ErrorKind)
		})
	}
}

func TestConvertService_Convert_CancelledContext(t *testing.T) {
	env := setupService(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.service.Convert(ctx, ConvertRequest{Text: scenarioText})
	assert.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(env.outputDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestConvertService_Render(t *testing.T) {
	service := NewConvertService(ConvertServiceConfig{})

	doc, parsed, err := service.Render(scenarioText)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(doc, xml.Header))
	assert.Equal(t, "My Book", parsed.Book.Title)
	assert.Len(t, parsed.Highlights, 1)
}

func TestConvertService_ExportFile(t *testing.T) {
	env := setupService(t)

	res, err := env.service.Convert(context.Background(), ConvertRequest{Text: scenarioText})
	require.NoError(t, err)

	t.Run("returns existing export", func(t *testing.T) {
		conversion, err := env.service.ExportFile(res.ID)
		require.NoError(t, err)
		assert.Equal(t, res.Filename, conversion.Filename)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := env.service.ExportFile("01ARZ3NDEKTSV4RRFFQ69G5FAV")
		assert.ErrorIs(t, err, ErrConversionNotFound)
	})

	t.Run("file removed", func(t *testing.T) {
		require.NoError(t, os.Remove(res.Path))
		_, err := env.service.ExportFile(res.ID)
		assert.ErrorIs(t, err, ErrExportFileMissing)
	})
}

func TestConvertService_WithoutStore(t *testing.T) {
	service := NewConvertService(ConvertServiceConfig{OutputDir: t.TempDir()})

	res, err := service.Convert(context.Background(), ConvertRequest{Text: scenarioText})
	require.NoError(t, err)
	assert.Empty(t, res.ID)

	list, total, err := service.List(10, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, total)

	_, err = service.Get("anything")
	assert.ErrorIs(t, err, ErrConversionNotFound)
}

func TestFailureMessage(t *testing.T) {
	_, err := kindle.NewParser().ParseText("")
	require.Error(t, err)

	wrapped := errors.Join(errors.New("context"), err)
	assert.Equal(t, "Error: "+err.Error(), FailureMessage(wrapped))
	assert.Equal(t, "Error: boom", FailureMessage(errors.New("boom")))
}
