package domain

import "time"

type FileType string

const (
	FileTypePDF     FileType = "pdf"
	FileTypePPTX    FileType = "pptx"
	FileTypeDOCX    FileType = "docx"
	FileTypeUnknown FileType = "unknown"
)

const (
	MIMEPDF  = "application/pdf"
	MIMEPPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Entry is one held file. Name is the identity within a selection; ID only
// addresses the stored bytes.
type Entry struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Size        int64    `json:"size"`
	MIMEType    string   `json:"mimeType"`
	SniffedMIME string   `json:"sniffedMime,omitempty"`
	FileType    FileType `json:"fileType"`
	Order       int      `json:"order"`
}

// Candidate is a raw file handle from a drop or picker event.
type Candidate struct {
	Name        string
	Size        int64
	MIMEType    string
	SniffedMIME string
	// StoredID is set once the bytes have been written to blob storage.
	StoredID string
}

type Result struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// State is a point-in-time copy of a workspace.
type State struct {
	ID        string    `json:"id"`
	Files     []Entry   `json:"files"`
	Busy      bool      `json:"busy"`
	Error     string    `json:"error,omitempty"`
	Result    *Result   `json:"result,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

const (
	IntakeSourceDrop   = "drop"
	IntakeSourcePicker = "picker"
)

const ResultFilename = "merged-document.pdf"
