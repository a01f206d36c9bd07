package handler

import (
	spapp "github.com/erp/sharepointsync/internal/application/sharepoint"
	"github.com/erp/sharepointsync/internal/interfaces/http/dto"
)

// ErrorResponse represents an error API response for OpenAPI documentation
// @Description Standard error response
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}

// ScanResponse is the body of a finished scan
// @Description Folders found under the root and how many of them were new
type ScanResponse struct {
	Found int `json:"found" example:"12"`
	New   int `json:"new" example:"2"`
}

// ImportResponse carries the created operation
type ImportResponse struct {
	OperationID string `json:"operationId" example:"1c9f3f5e-0b6a-4b8e-8f57-2d9f1f0a7c11"`
}

// EmptyResponse is returned by ignore
type EmptyResponse struct{}

// PendingItemListResponse documents GET /sharepoint/pending
type PendingItemListResponse struct {
	Data []spapp.PendingItemResponse `json:"data"`
}

// PendingItemDetailResponse documents GET /sharepoint/pending/{id}
type PendingItemDetailResponse struct {
	Data spapp.PendingItemResponse `json:"data"`
}

// ScanRunListResponse documents GET /sharepoint/scans
type ScanRunListResponse struct {
	Data []spapp.ScanRunResponse `json:"data"`
}
