package domain

import (
	"time"

	"github.com/google/uuid"
)

type File struct {
	UUID         uuid.UUID  `json:"uuid" db:"uuid"`
	Name         string     `json:"name" db:"name"`
	OriginalName string     `json:"original_name" db:"original_name"`
	Path         string     `json:"path" db:"path"`
	MIMEType     string     `json:"mime_type" db:"mime_type"`
	SizeBytes    int64      `json:"size_bytes" db:"size_bytes"`
	FolderID     *int64     `json:"folder_id,omitempty" db:"folder_id"`
	UploadedBy   int64      `json:"uploaded_by" db:"uploaded_by"`
	IsShared     bool       `json:"is_shared" db:"is_shared"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

func (f *File) SubjectType() SubjectType { return SubjectFile }
func (f *File) SubjectID() string        { return f.UUID.String() }
func (f *File) OwnerID() int64           { return f.UploadedBy }
func (f *File) Shared() bool             { return f.IsShared }

type FileUpload struct {
	OriginalName string
	MIMEType     string
	FolderID     *int64
	Data         []byte
}

type FileDownload struct {
	File *File
	Data []byte
}
