package domain

import (
	"strconv"
	"time"
)

type Folder struct {
	ID        int64      `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	Path      string     `json:"path" db:"path"`
	ParentID  *int64     `json:"parent_id,omitempty" db:"parent_id"`
	CreatedBy int64      `json:"created_by" db:"created_by"`
	IsShared  bool       `json:"is_shared" db:"is_shared"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

func (f *Folder) SubjectType() SubjectType { return SubjectFolder }
func (f *Folder) SubjectID() string        { return strconv.FormatInt(f.ID, 10) }
func (f *Folder) OwnerID() int64           { return f.CreatedBy }
func (f *Folder) Shared() bool             { return f.IsShared }

// PathUpdate описывает новый физический путь для одной папки
// при рекурсивном обновлении поддерева.
type PathUpdate struct {
	ID   int64
	Path string
}

type FolderContent struct {
	Folder  Folder   `json:"folder"`
	Files   []File   `json:"files"`
	Folders []Folder `json:"subfolders"`
}
