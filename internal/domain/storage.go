package domain

// FolderCache keeps the last known favorites folders per media kind
type FolderCache interface {
	GetFolders(kind MediaKind) ([]Folder, bool)
	SaveFolders(kind MediaKind, folders []Folder) error
	InvalidateFolders(kind MediaKind)
}
