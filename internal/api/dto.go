package api

import (
	"time"

	"medikon.dev/scan-pipeline/internal/store"
)

type createDeviceRequest struct {
	DeviceName string `json:"device_name" binding:"required"`
}

type renameDeviceRequest struct {
	DeviceName string `json:"device_name" binding:"required"`
}

// createResultRequest inserts a pre-computed result directly. The
// averages are pointers so an explicit zero survives binding.
type createResultRequest struct {
	DeviceID                   int32    `json:"device_id" binding:"required"`
	AverageBeforeNormalization *float64 `json:"average_before_normalization" binding:"required"`
	AverageAfterNormalization  *float64 `json:"average_after_normalization" binding:"required"`
	DataSize                   int32    `json:"data_size" binding:"required,min=1"`
}

type deviceResponse struct {
	ID         int32  `json:"id"`
	DeviceName string `json:"device_name"`
}

type resultResponse struct {
	ID                         int32     `json:"id"`
	DeviceID                   int32     `json:"device_id"`
	AverageBeforeNormalization float64   `json:"average_before_normalization"`
	AverageAfterNormalization  float64   `json:"average_after_normalization"`
	DataSize                   int32     `json:"data_size"`
	CreatedDate                time.Time `json:"created_date"`
	UpdatedDate                time.Time `json:"updated_date"`
}

type scanBatchResponse struct {
	Detail         string `json:"detail"`
	Processed      int    `json:"processed"`
	DevicesCreated int    `json:"devices_created"`
}

func toDeviceResponse(device *store.Device) deviceResponse {
	return deviceResponse{
		ID:         device.ID,
		DeviceName: device.DeviceName,
	}
}

func toDeviceResponses(devices []store.Device) []deviceResponse {
	out := make([]deviceResponse, len(devices))
	for i := range devices {
		out[i] = toDeviceResponse(&devices[i])
	}
	return out
}

func toResultResponse(result *store.ProcessingResult) resultResponse {
	return resultResponse{
		ID:                         result.ID,
		DeviceID:                   result.DeviceID,
		AverageBeforeNormalization: result.AverageBeforeNormalization,
		AverageAfterNormalization:  result.AverageAfterNormalization,
		DataSize:                   result.DataSize,
		CreatedDate:                result.CreatedDate,
		UpdatedDate:                result.UpdatedDate,
	}
}

func toResultResponses(results []store.ProcessingResult) []resultResponse {
	out := make([]resultResponse, len(results))
	for i := range results {
		out[i] = toResultResponse(&results[i])
	}
	return out
}
