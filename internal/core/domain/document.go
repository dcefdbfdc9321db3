package domain

import "time"

const PDFContentType = "application/pdf"

// DocumentSession identifies the document the workspace is working with.
// It is only ever built from a successful upload response.
type DocumentSession struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
}

// DocumentInfo is a library entry as reported by the backend.
type DocumentInfo struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
}

// SelectedFile is a locally chosen file that has not been uploaded yet.
type SelectedFile struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

func (f SelectedFile) Size() int64 {
	return int64(len(f.Data))
}

// PreviewHandle references a locally rendered copy of a selected file.
type PreviewHandle struct {
	ID          string    `json:"id"`
	Path        string    `json:"-"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	AcquiredAt  time.Time `json:"acquired_at"`
}

// PendingUpload is the pre-session view of the upload slot.
type PendingUpload struct {
	File      SelectedFile  `json:"file"`
	Preview   PreviewHandle `json:"preview"`
	Uploading bool          `json:"uploading"`
}
