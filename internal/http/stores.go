package http

import (
	"context"

	"github.com/mrlokans/kindle-enex/internal/entities"
	"github.com/mrlokans/kindle-enex/internal/services"
)

// Converter turns pasted highlights into stored ENEX exports.
// Implemented by services.ConvertService.
type Converter interface {
	Convert(ctx context.Context, req services.ConvertRequest) (*services.ConvertResult, error)
	List(limit, offset int) ([]entities.Conversion, int64, error)
	ExportFile(id string) (*entities.Conversion, error)
}

// CleanupTrigger enqueues a history cleanup. Implemented by scheduler.CleanupScheduler.
type CleanupTrigger interface {
	RunNow(ctx context.Context) (string, error)
}

var _ Converter = (*services.ConvertService)(nil)
