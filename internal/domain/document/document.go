package document

import (
	"io"
	"strings"
	"time"
)

// Status is the UI-facing lifecycle stage of a document.
type Status string

const (
	// StatusUploading covers queued and in-transit documents.
	StatusUploading Status = "uploading"
	// StatusProcessing means the backend accepted the file and extraction is running.
	StatusProcessing Status = "processing"
	// StatusComplete means extraction finished and detail is available.
	StatusComplete Status = "complete"
)

// Rank orders statuses along the lifecycle: Uploading < Processing < Complete.
func (s Status) Rank() int {
	switch s {
	case StatusProcessing:
		return 1
	case StatusComplete:
		return 2
	default:
		return 0
	}
}

// Source tells who produced the current status/progress of a document.
type Source string

const (
	// SourceLocal is a pending upload created on this client.
	SourceLocal Source = "local"
	// SourceSimulated is a document whose progress was advanced by the local ticker.
	SourceSimulated Source = "local-simulated"
	// SourceServer is a document whose state came from a full server listing.
	SourceServer Source = "server-confirmed"
)

// MaxProgress is the progress value of a completed document.
const MaxProgress = 100

// Document is a registry entry.
type Document struct {
	ID         string    `json:"id"`
	ServerID   string    `json:"server_id,omitempty"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`

	Status   Status `json:"status"`
	Progress int    `json:"progress"`

	ExtractionAccuracy   float64 `json:"extraction_accuracy"`
	SegmentationAccuracy float64 `json:"segmentation_accuracy"`

	IsNew  bool   `json:"is_new"`
	Source Source `json:"source"`

	FileExtension string `json:"file_extension,omitempty"`
	FileType      string `json:"file_type,omitempty"`
	StatusName    string `json:"status_name,omitempty"`
	StoragePath   string `json:"storage_path,omitempty"`
}

// HasServerID reports whether the backend has accepted the document.
func (d *Document) HasServerID() bool { return d.ServerID != "" }

// IsComplete reports whether the document reached the terminal status.
func (d *Document) IsComplete() bool { return d.Status == StatusComplete }

// IsFinal reports whether the backend itself confirmed the terminal status.
// A document completed by simulated progress is not final.
func (d *Document) IsFinal() bool { return d.Status == StatusComplete && d.Source == SourceServer }

// DisplayName returns the name with its file extension, without doubling an extension already present.
func (d *Document) DisplayName() string {
	ext := strings.TrimPrefix(d.FileExtension, ".")
	if ext == "" || d.Name == "" {
		return d.Name
	}
	if strings.HasSuffix(strings.ToLower(d.Name), "."+strings.ToLower(ext)) {
		return d.Name
	}
	return d.Name + "." + ext
}

// File is a file submitted for upload.
type File struct {
	Name string
	Size int64
	Body io.Reader
}
