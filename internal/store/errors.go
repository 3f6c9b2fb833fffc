package store

import (
	"errors"
)

var (
	// ErrDeviceNameRequired is returned when a device is created or
	// renamed with an empty name.
	ErrDeviceNameRequired = errors.New("device name is required")

	// ErrDeviceNotFound is returned when a device lookup misses, or a
	// result references a device id that does not exist.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrResultNotFound is returned when a processing result lookup
	// misses.
	ErrResultNotFound = errors.New("processing result not found")

	// ErrDeviceInUse is returned when deleting a device that still has
	// processing results. The foreign key restricts the delete.
	ErrDeviceInUse = errors.New("device has processing results")
)
