// Package store persists imaging devices and their processing results
// to PostgreSQL.
package store

import (
	"time"
)

// Device represents a registered medical imaging device.
// IDs are int32 so migrations keep the SERIAL and INT columns of
// existing deployments.
type Device struct {
	ID         int32              `gorm:"primaryKey"`
	DeviceName string             `gorm:"size:255;not null"`
	Results    []ProcessingResult `gorm:"foreignKey:DeviceID"`
}

// TableName specifies the table name for Device model.
func (Device) TableName() string {
	return "devices"
}

// ProcessingResult records the summary statistics of one normalization
// run for a device. Timestamps are stamped by the persistence layer on
// insert, and updated_date again on every update.
type ProcessingResult struct {
	ID                         int32     `gorm:"primaryKey"`
	DeviceID                   int32     `gorm:"not null"`
	AverageBeforeNormalization float64   `gorm:"type:float;not null"`
	AverageAfterNormalization  float64   `gorm:"type:float;not null"`
	DataSize                   int32     `gorm:"not null"`
	CreatedDate                time.Time `gorm:"type:timestamp;default:now();autoCreateTime"`
	UpdatedDate                time.Time `gorm:"type:timestamp;default:now();autoUpdateTime"`
}

// TableName specifies the table name for ProcessingResult model.
func (ProcessingResult) TableName() string {
	return "processing_results"
}
