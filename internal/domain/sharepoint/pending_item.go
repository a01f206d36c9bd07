package sharepoint

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/erp/sharepointsync/internal/domain/shared"
	"github.com/google/uuid"
)

// PendingStatus is the workflow status of a detected folder
type PendingStatus string

const (
	StatusPending  PendingStatus = "pending"
	StatusImported PendingStatus = "imported"
	StatusIgnored  PendingStatus = "ignored"
)

// IsValid checks if the status is valid
func (s PendingStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusImported, StatusIgnored:
		return true
	}
	return false
}

// IsTerminal returns true once the item has been resolved
func (s PendingStatus) IsTerminal() bool {
	return s == StatusImported || s == StatusIgnored
}

// ParsePendingStatus parses a status filter. An empty string is accepted and means "any".
func ParsePendingStatus(raw string) (PendingStatus, error) {
	s := PendingStatus(strings.ToLower(strings.TrimSpace(raw)))
	if s == "" || s.IsValid() {
		return s, nil
	}
	return "", shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Invalid status: %s", raw))
}

// ClassifiedFile is one entry of a folder snapshot. The JSON field names are part of the
// stored blob and the API contract.
type ClassifiedFile struct {
	Name        string       `json:"name"`
	DownloadURL string       `json:"downloadUrl"`
	Type        FileCategory `json:"type"`
}

// Actor identifies the operator resolving an item
type Actor struct {
	ID   uuid.UUID
	Name string
}

// PendingItem is the record of one observed remote folder
type PendingItem struct {
	shared.BaseEntity
	FolderName     string
	Files          []ClassifiedFile
	DetectedAt     time.Time
	Status         PendingStatus
	OperationID    *uuid.UUID
	ImportedAt     *time.Time
	ImportedBy     *uuid.UUID
	ImportedByName string
	IgnoredAt      *time.Time
	IgnoredBy      *uuid.UUID

	filesJSON string
}

// NewPendingItem creates a pending item with its file snapshot encoded once.
func NewPendingItem(folderName string, files []ClassifiedFile, detectedAt time.Time) (*PendingItem, error) {
	if strings.TrimSpace(folderName) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Folder name cannot be empty")
	}
	if files == nil {
		files = []ClassifiedFile{}
	}

	blob, err := json.Marshal(files)
	if err != nil {
		return nil, fmt.Errorf("encode file snapshot: %w", err)
	}

	return &PendingItem{
		BaseEntity: shared.NewBaseEntityAt(detectedAt),
		FolderName: folderName,
		Files:      files,
		DetectedAt: detectedAt,
		Status:     StatusPending,
		filesJSON:  string(blob),
	}, nil
}

// FilesJSON returns the stored snapshot exactly as persisted.
func (p *PendingItem) FilesJSON() string {
	if p.filesJSON != "" {
		return p.filesJSON
	}
	blob, err := json.Marshal(p.Files)
	if err != nil || p.Files == nil {
		return "[]"
	}
	return string(blob)
}

// SetFilesFromJSON restores the snapshot from its stored form, keeping the raw text so it
// round-trips unchanged.
func (p *PendingItem) SetFilesFromJSON(blob string) error {
	if blob == "" {
		p.Files = []ClassifiedFile{}
		p.filesJSON = "[]"
		return nil
	}
	var files []ClassifiedFile
	if err := json.Unmarshal([]byte(blob), &files); err != nil {
		return fmt.Errorf("decode file snapshot: %w", err)
	}
	p.Files = files
	p.filesJSON = blob
	return nil
}

// FilesByCategory partitions the snapshot, keeping snapshot order inside each category.
func (p *PendingItem) FilesByCategory() map[FileCategory][]ClassifiedFile {
	out := make(map[FileCategory][]ClassifiedFile, 3)
	for _, f := range p.Files {
		out[f.Type] = append(out[f.Type], f)
	}
	return out
}

// EnsurePending returns a conflict error unless the item is still pending.
func (p *PendingItem) EnsurePending() error {
	if p.Status.IsTerminal() || !p.Status.IsValid() {
		return shared.NewDomainError(shared.CodeConflict,
			fmt.Sprintf("Folder %q was already resolved (%s)", p.FolderName, p.Status))
	}
	return nil
}

// MarkImported applies the imported transition in memory.
func (p *PendingItem) MarkImported(operationID uuid.UUID, actor Actor, at time.Time) error {
	if err := p.EnsurePending(); err != nil {
		return err
	}
	if operationID == uuid.Nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "Operation ID is required")
	}
	p.Status = StatusImported
	p.OperationID = &operationID
	p.ImportedAt = &at
	p.ImportedBy = &actor.ID
	p.ImportedByName = actor.Name
	p.Touch(at)
	return nil
}

// MarkIgnored applies the ignored transition in memory.
func (p *PendingItem) MarkIgnored(actor Actor, at time.Time) error {
	if err := p.EnsurePending(); err != nil {
		return err
	}
	p.Status = StatusIgnored
	p.IgnoredAt = &at
	p.IgnoredBy = &actor.ID
	p.Touch(at)
	return nil
}

// PendingItemView is a pending item joined with the number of the operation it produced.
type PendingItemView struct {
	*PendingItem
	ImportedOperationNumber string
}
