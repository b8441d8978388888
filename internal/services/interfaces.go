package services

import (
	"github.com/mrlokans/kindle-enex/internal/audit"
	"github.com/mrlokans/kindle-enex/internal/entities"
)

// ConversionStore persists conversion history.
// Implemented by conversions.Repository.
type ConversionStore interface {
	Save(conversion *entities.Conversion) error
	GetByPublicID(id string) (*entities.Conversion, error)
	FindLatestByInputHash(hash string) (*entities.Conversion, error)
	List(limit, offset int) ([]entities.Conversion, int64, error)
}

// ConversionAuditor writes a snapshot of each conversion request.
// Implemented by audit.Auditor.
type ConversionAuditor interface {
	RecordConversion(record audit.ConversionRecord) (string, error)
}
