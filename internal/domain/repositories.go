package domain

import (
	"context"
)

// FolderInput carries the writable fields of a favorites folder
type FolderInput struct {
	ID          uint   `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Order       int    `json:"order,omitempty"`
}

// CreateFavoriteRequest is the body of a create-item call
type CreateFavoriteRequest struct {
	FolderID     uint   `json:"folder_id"`
	StorageID    uint   `json:"storage_id"`
	OriginalPath string `json:"original_path"`
	FileName     string `json:"file_name"`
	Note         string `json:"note,omitempty"`
	Fingerprint  string `json:"fingerprint,omitempty"`
}

// MarkInput carries the writable fields of a media mark
type MarkInput struct {
	ID         uint    `json:"id,omitempty"`
	TimeSecond float64 `json:"time_second"`
	Title      string  `json:"title"`
	Content    string  `json:"content"`
}

// FavoritesRepository provides favorites CRUD for every media kind
type FavoritesRepository interface {
	ListFolders(ctx context.Context, kind MediaKind) ([]Folder, error)
	GetFolder(ctx context.Context, kind MediaKind, id uint) (*Folder, error)
	CreateFolder(ctx context.Context, kind MediaKind, in FolderInput) (*Folder, error)
	UpdateFolder(ctx context.Context, kind MediaKind, in FolderInput) (*Folder, error)
	DeleteFolder(ctx context.Context, kind MediaKind, id uint) error

	// ListFavorites returns every favorite of a kind when folderID is 0
	ListFavorites(ctx context.Context, kind MediaKind, folderID uint) ([]Favorite, error)
	CreateFavorite(ctx context.Context, kind MediaKind, req CreateFavoriteRequest) (*Favorite, error)
	UpdateFavoriteNote(ctx context.Context, kind MediaKind, id uint, note string) (*Favorite, error)
	DeleteFavorite(ctx context.Context, kind MediaKind, id uint) error

	// ListAllMarks returns favorites of a kind together with their marks
	ListAllMarks(ctx context.Context, kind MediaKind) ([]MediaWithMarks, error)
}

// MarksRepository provides media mark CRUD keyed by file path
type MarksRepository interface {
	ListMarks(ctx context.Context, path string) ([]MediaMark, error)
	CreateMark(ctx context.Context, path string, in MarkInput) (*MediaMark, error)
	UpdateMark(ctx context.Context, path string, in MarkInput) (*MediaMark, error)
	DeleteMark(ctx context.Context, path string, id uint) error
}

// AuthResult contains the result of a successful login
type AuthResult struct {
	Token    string
	Username string
}
