package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ResultRepo provides persistence for processing results.
type ResultRepo struct {
	db *gorm.DB
}

// NewResultRepo creates a result repository on the given connection.
func NewResultRepo(db *gorm.DB) *ResultRepo {
	return &ResultRepo{db: db}
}

// Create stores a processing result. The referenced device must exist.
func (r *ResultRepo) Create(ctx context.Context, result *ProcessingResult) error {
	err := r.db.WithContext(ctx).Create(result).Error
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return ErrDeviceNotFound
	}
	return err
}

// Get returns the processing result with the given id.
func (r *ResultRepo) Get(ctx context.Context, id int32) (*ProcessingResult, error) {
	var result ProcessingResult
	err := r.db.WithContext(ctx).First(&result, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// List returns all processing results ordered by id.
func (r *ResultRepo) List(ctx context.Context) ([]ProcessingResult, error) {
	var results []ProcessingResult
	err := r.db.WithContext(ctx).
		Order("id").
		Find(&results).Error
	return results, err
}

// ListByDevice returns the processing results for one device in
// creation order.
func (r *ResultRepo) ListByDevice(ctx context.Context, deviceID int32) ([]ProcessingResult, error) {
	var results []ProcessingResult
	err := r.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("created_date, id").
		Find(&results).Error
	return results, err
}

// Delete removes a processing result.
func (r *ResultRepo) Delete(ctx context.Context, id int32) error {
	tx := r.db.WithContext(ctx).Delete(&ProcessingResult{}, id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrResultNotFound
	}
	return nil
}
