package store

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

// DeviceRepo provides persistence for devices.
type DeviceRepo struct {
	db *gorm.DB
}

// NewDeviceRepo creates a device repository on the given connection.
func NewDeviceRepo(db *gorm.DB) *DeviceRepo {
	return &DeviceRepo{db: db}
}

// Create registers a new device and returns it with its generated id.
func (r *DeviceRepo) Create(ctx context.Context, name string) (*Device, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrDeviceNameRequired
	}

	device := Device{DeviceName: name}
	if err := r.db.WithContext(ctx).Create(&device).Error; err != nil {
		return nil, err
	}
	return &device, nil
}

// Get returns the device with the given id.
func (r *DeviceRepo) Get(ctx context.Context, id int32) (*Device, error) {
	var device Device
	err := r.db.WithContext(ctx).First(&device, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// GetByName returns the first device registered under the given name.
// Names are not unique, so the oldest registration wins.
func (r *DeviceRepo) GetByName(ctx context.Context, name string) (*Device, error) {
	var device Device
	err := r.db.WithContext(ctx).
		Where("device_name = ?", strings.TrimSpace(name)).
		First(&device).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// FindOrCreate returns the device with the given name, registering it
// on first sight. The second return value reports whether a new device
// was created.
func (r *DeviceRepo) FindOrCreate(ctx context.Context, name string) (*Device, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, ErrDeviceNameRequired
	}

	device, err := r.GetByName(ctx, name)
	if err == nil {
		return device, false, nil
	}
	if !errors.Is(err, ErrDeviceNotFound) {
		return nil, false, err
	}

	created, err := r.Create(ctx, name)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

// List returns all devices ordered by id.
func (r *DeviceRepo) List(ctx context.Context) ([]Device, error) {
	var devices []Device
	err := r.db.WithContext(ctx).
		Order("id").
		Find(&devices).Error
	return devices, err
}

// Rename updates a device's name. Stored results keep their link to
// the device.
func (r *DeviceRepo) Rename(ctx context.Context, id int32, name string) (*Device, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrDeviceNameRequired
	}

	device, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).
		Model(device).
		Update("device_name", name).Error; err != nil {
		return nil, err
	}
	return device, nil
}

// Delete removes a device. Devices that still have processing results
// are protected by the results foreign key.
func (r *DeviceRepo) Delete(ctx context.Context, id int32) error {
	tx := r.db.WithContext(ctx).Delete(&Device{}, id)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrForeignKeyViolated) {
			return ErrDeviceInUse
		}
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}
