package sharepoint

import (
	"time"

	"github.com/erp/sharepointsync/internal/domain/sharepoint"
	"github.com/google/uuid"
)

// ScanResult is the outcome of one reconciliation pass
type ScanResult struct {
	Found int `json:"found"`
	New   int `json:"new"`
}

// ImportResult carries the operation an import created
type ImportResult struct {
	OperationID uuid.UUID `json:"operationId"`
}

// PendingItemResponse represents a pending item in API responses.
// Files is the stored snapshot string. Download references in it are replaced by minted
// links when the source signs them. Documents is only filled on the detail of an
// imported item.
type PendingItemResponse struct {
	ID                      uuid.UUID  `json:"id"`
	FolderName              string     `json:"folder_name"`
	Files                   string     `json:"files"`
	DetectedAt              time.Time  `json:"detected_at"`
	Status                  string     `json:"status"`
	OperationID             *uuid.UUID `json:"operation_id"`
	ImportedAt              *time.Time `json:"imported_at"`
	ImportedByName          *string    `json:"imported_by_name"`
	ImportedOperationNumber *string    `json:"imported_operation_number"`
	IgnoredAt               *time.Time `json:"ignored_at,omitempty"`

	Documents []OperationDocumentResponse `json:"documents,omitempty"`
}

// OperationDocumentResponse is a document of the operation an item was imported into
type OperationDocumentResponse struct {
	ID          uuid.UUID `json:"id"`
	Type        string    `json:"type"`
	FileName    string    `json:"file_name"`
	DownloadURL string    `json:"download_url"`
	Linked      bool      `json:"linked"`
}

// ScanRunResponse represents a scan audit record in API responses
type ScanRunResponse struct {
	ID         uuid.UUID `json:"id"`
	Trigger    string    `json:"trigger"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMs int64     `json:"duration_ms"`
	Found      int       `json:"found"`
	New        int       `json:"new"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
}

// ListPendingQuery is the filter for ListPending. Status is validated by ParsePendingStatus.
type ListPendingQuery struct {
	Status string `form:"status" binding:"omitempty,pending_status"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

// ToPendingItemResponse converts a domain view to its response shape
func ToPendingItemResponse(v *sharepoint.PendingItemView) PendingItemResponse {
	resp := PendingItemResponse{
		ID:          v.ID,
		FolderName:  v.FolderName,
		Files:       v.FilesJSON(),
		DetectedAt:  v.DetectedAt,
		Status:      string(v.Status),
		OperationID: v.OperationID,
		ImportedAt:  v.ImportedAt,
		IgnoredAt:   v.IgnoredAt,
	}
	if v.ImportedByName != "" {
		name := v.ImportedByName
		resp.ImportedByName = &name
	}
	if v.ImportedOperationNumber != "" {
		number := v.ImportedOperationNumber
		resp.ImportedOperationNumber = &number
	}
	return resp
}

// ToScanRunResponse converts a scan run to its response shape
func ToScanRunResponse(r *sharepoint.ScanRun) ScanRunResponse {
	return ScanRunResponse{
		ID:         r.ID,
		Trigger:    string(r.Trigger),
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		DurationMs: r.Duration().Milliseconds(),
		Found:      r.Found,
		New:        r.New,
		Status:     string(r.Status),
		Error:      r.Error,
	}
}
