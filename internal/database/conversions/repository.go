package conversions

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"

	"github.com/mrlokans/kindle-enex/internal/entities"
)

var ErrNotFound = errors.New("conversion not found")

const defaultListLimit = 50

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Save stores a conversion, assigning a ULID and creation time when missing.
func (r *Repository) Save(conversion *entities.Conversion) error {
	if conversion.CreatedAt.IsZero() {
		conversion.CreatedAt = time.Now()
	}
	if conversion.PublicID == "" {
		id, err := NewID(conversion.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to generate conversion id: %w", err)
		}
		conversion.PublicID = id
	}
	if conversion.Status == "" {
		conversion.Status = entities.ConversionStatusCompleted
	}
	return r.db.Create(conversion).Error
}

// GetByPublicID returns the conversion with the given ULID.
func (r *Repository) GetByPublicID(id string) (*entities.Conversion, error) {
	var conversion entities.Conversion
	err := r.db.Where("public_id = ?", id).First(&conversion).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conversion, nil
}

// FindLatestByInputHash returns the newest completed conversion of the same input.
func (r *Repository) FindLatestByInputHash(hash string) (*entities.Conversion, error) {
	var found []entities.Conversion
	result := r.db.
		Where("input_hash = ? AND status = ?", hash, entities.ConversionStatusCompleted).
		Order("created_at DESC").
		Limit(1).
		Find(&found)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &found[0], nil
}

// List returns conversions newest first together with the total count.
func (r *Repository) List(limit, offset int) ([]entities.Conversion, int64, error) {
	var conversions []entities.Conversion
	var total int64

	query := r.db.Model(&entities.Conversion{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&conversions).Error
	return conversions, total, err
}

// ListBefore returns conversions created before the given time.
func (r *Repository) ListBefore(olderThan time.Time) ([]entities.Conversion, error) {
	var conversions []entities.Conversion
	err := r.db.Where("created_at < ?", olderThan).Find(&conversions).Error
	return conversions, err
}

// DeleteBefore removes conversions created before the given time.
// Returns the number of deleted rows.
func (r *Repository) DeleteBefore(olderThan time.Time) (int64, error) {
	result := r.db.Where("created_at < ?", olderThan).Delete(&entities.Conversion{})
	return result.RowsAffected, result.Error
}

// NewID returns a ULID for a conversion created at the given time.
func NewID(at time.Time) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(at), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
