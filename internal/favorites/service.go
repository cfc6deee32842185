package favorites

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/cantoplayer/canto/internal/domain"
)

// Service runs favorites and marks commands for every media kind. Folder
// lists are cached and refreshed after folder mutations. Errors are logged
// and returned unchanged so callers can show them.
type Service struct {
	favorites domain.FavoritesRepository
	marks     domain.MarksRepository
	cache     domain.FolderCache
	logger    *slog.Logger
}

// NewService creates a favorites service. cache may be nil.
func NewService(favorites domain.FavoritesRepository, marks domain.MarksRepository, cache domain.FolderCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{favorites: favorites, marks: marks, cache: cache, logger: logger}
}

// === Folders ===

// Folders returns the folders of a kind, from cache when possible
func (s *Service) Folders(ctx context.Context, kind domain.MediaKind) ([]domain.Folder, error) {
	if s.cache != nil {
		if folders, ok := s.cache.GetFolders(kind); ok {
			return folders, nil
		}
	}
	return s.FetchFolders(ctx, kind)
}

// FetchFolders reloads the folders of a kind from the server
func (s *Service) FetchFolders(ctx context.Context, kind domain.MediaKind) ([]domain.Folder, error) {
	folders, err := s.favorites.ListFolders(ctx, kind)
	if err != nil {
		s.logger.Error("failed to fetch folders", "error", err, "kind", kind)
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SaveFolders(kind, folders); err != nil {
			s.logger.Error("failed to cache folders", "error", err, "kind", kind)
		}
	}
	s.logger.Debug("fetched folders", "count", len(folders), "kind", kind)
	return folders, nil
}

func (s *Service) GetFolder(ctx context.Context, kind domain.MediaKind, id uint) (*domain.Folder, error) {
	folder, err := s.favorites.GetFolder(ctx, kind, id)
	if err != nil {
		s.logger.Error("failed to get folder", "error", err, "kind", kind, "folderID", id)
		return nil, err
	}
	return folder, nil
}

func (s *Service) CreateFolder(ctx context.Context, kind domain.MediaKind, in domain.FolderInput) (*domain.Folder, error) {
	folder, err := s.favorites.CreateFolder(ctx, kind, in)
	if err != nil {
		s.logger.Error("failed to create folder", "error", err, "kind", kind, "name", in.Name)
		return nil, err
	}
	s.invalidate(kind)
	s.logger.Info("created folder", "kind", kind, "name", folder.Name, "id", folder.ID)
	return folder, nil
}

func (s *Service) UpdateFolder(ctx context.Context, kind domain.MediaKind, in domain.FolderInput) (*domain.Folder, error) {
	folder, err := s.favorites.UpdateFolder(ctx, kind, in)
	if err != nil {
		s.logger.Error("failed to update folder", "error", err, "kind", kind, "folderID", in.ID)
		return nil, err
	}
	s.invalidate(kind)
	s.logger.Info("updated folder", "kind", kind, "id", folder.ID)
	return folder, nil
}

func (s *Service) DeleteFolder(ctx context.Context, kind domain.MediaKind, id uint) error {
	if err := s.favorites.DeleteFolder(ctx, kind, id); err != nil {
		s.logger.Error("failed to delete folder", "error", err, "kind", kind, "folderID", id)
		return err
	}
	s.invalidate(kind)
	s.logger.Info("deleted folder", "kind", kind, "folderID", id)
	return nil
}

// FindFolder returns the folder whose name best matches name. An exact
// case-insensitive match wins; otherwise the closest fuzzy match is used.
func (s *Service) FindFolder(ctx context.Context, kind domain.MediaKind, name string) (*domain.Folder, error) {
	folders, err := s.Folders(ctx, kind)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	names := make([]string, len(folders))
	for i, f := range folders {
		if strings.EqualFold(f.Name, name) {
			return &folders[i], nil
		}
		names[i] = f.Name
	}

	ranks := fuzzy.RankFindNormalizedFold(name, names)
	if name == "" || len(ranks) == 0 {
		return nil, fmt.Errorf("%q: %w", name, domain.ErrFolderNotFound)
	}
	sort.Sort(ranks)
	return &folders[ranks[0].OriginalIndex], nil
}

// DefaultFolder resolves the folder quick actions save into: the preferred
// name when set, else the first folder
func (s *Service) DefaultFolder(ctx context.Context, kind domain.MediaKind, preferred string) (*domain.Folder, error) {
	if preferred != "" {
		return s.FindFolder(ctx, kind, preferred)
	}
	folders, err := s.Folders(ctx, kind)
	if err != nil {
		return nil, err
	}
	if len(folders) == 0 {
		return nil, domain.ErrFolderNotFound
	}
	return &folders[0], nil
}

func (s *Service) invalidate(kind domain.MediaKind) {
	if s.cache != nil {
		s.cache.InvalidateFolders(kind)
	}
}

// === Favorites ===

// Favorites lists a folder's favorites, or every favorite of the kind when folderID is 0
func (s *Service) Favorites(ctx context.Context, kind domain.MediaKind, folderID uint) ([]domain.Favorite, error) {
	favs, err := s.favorites.ListFavorites(ctx, kind, folderID)
	if err != nil {
		s.logger.Error("failed to list favorites", "error", err, "kind", kind, "folderID", folderID)
		return nil, err
	}
	return favs, nil
}

// AddToFavorites saves a queued item into a folder. The kind follows the
// file extension and defaults to audio.
func (s *Service) AddToFavorites(ctx context.Context, folderID uint, item domain.PlaylistItem, note string) (*domain.Favorite, error) {
	if !strings.HasPrefix(item.Path, "/") {
		return nil, fmt.Errorf("favorite %q: %w", item.Path, domain.ErrInvalidPath)
	}

	kind, ok := domain.KindOf(item.Name)
	if !ok {
		kind = domain.MediaKindAudio
	}

	req := domain.CreateFavoriteRequest{
		FolderID:     folderID,
		StorageID:    item.StorageID,
		OriginalPath: item.Path,
		FileName:     item.Name,
		Note:         note,
		Fingerprint:  ItemFingerprint(item),
	}
	fav, err := s.favorites.CreateFavorite(ctx, kind, req)
	if err != nil {
		s.logger.Error("failed to add favorite", "error", err, "kind", kind, "path", item.Path)
		return nil, err
	}
	s.logger.Info("added favorite", "kind", kind, "path", item.Path, "folderID", folderID)
	return fav, nil
}

func (s *Service) UpdateNote(ctx context.Context, kind domain.MediaKind, id uint, note string) (*domain.Favorite, error) {
	fav, err := s.favorites.UpdateFavoriteNote(ctx, kind, id, note)
	if err != nil {
		s.logger.Error("failed to update favorite note", "error", err, "kind", kind, "id", id)
		return nil, err
	}
	return fav, nil
}

func (s *Service) RemoveFavorite(ctx context.Context, kind domain.MediaKind, id uint) error {
	if err := s.favorites.DeleteFavorite(ctx, kind, id); err != nil {
		s.logger.Error("failed to remove favorite", "error", err, "kind", kind, "id", id)
		return err
	}
	s.logger.Info("removed favorite", "kind", kind, "id", id)
	return nil
}

// AllMarks lists every favorited file of a kind with its marks
func (s *Service) AllMarks(ctx context.Context, kind domain.MediaKind) ([]domain.MediaWithMarks, error) {
	media, err := s.favorites.ListAllMarks(ctx, kind)
	if err != nil {
		s.logger.Error("failed to list marks", "error", err, "kind", kind)
		return nil, err
	}
	return media, nil
}

// === Marks ===

func (s *Service) Marks(ctx context.Context, path string) ([]domain.MediaMark, error) {
	marks, err := s.marks.ListMarks(ctx, path)
	if err != nil {
		s.logger.Error("failed to list marks", "error", err, "path", path)
		return nil, err
	}
	sort.SliceStable(marks, func(i, j int) bool { return marks[i].TimeSecond < marks[j].TimeSecond })
	return marks, nil
}

// AddMark places a mark on item at the given offset. An empty title
// becomes the offset as m:ss.
func (s *Service) AddMark(ctx context.Context, item domain.PlaylistItem, at time.Duration, title, content string) (*domain.MediaMark, error) {
	if !strings.HasPrefix(item.Path, "/") {
		return nil, fmt.Errorf("mark %q: %w", item.Path, domain.ErrInvalidPath)
	}
	if strings.TrimSpace(title) == "" {
		title = FormatOffset(at)
	}

	in := domain.MarkInput{
		TimeSecond: at.Truncate(time.Millisecond).Seconds(),
		Title:      title,
		Content:    content,
	}
	mark, err := s.marks.CreateMark(ctx, item.Path, in)
	if err != nil {
		s.logger.Error("failed to add mark", "error", err, "path", item.Path)
		return nil, err
	}
	s.logger.Info("added mark", "path", item.Path, "second", in.TimeSecond)
	return mark, nil
}

func (s *Service) UpdateMark(ctx context.Context, path string, in domain.MarkInput) (*domain.MediaMark, error) {
	mark, err := s.marks.UpdateMark(ctx, path, in)
	if err != nil {
		s.logger.Error("failed to update mark", "error", err, "path", path, "id", in.ID)
		return nil, err
	}
	return mark, nil
}

func (s *Service) DeleteMark(ctx context.Context, path string, id uint) error {
	if err := s.marks.DeleteMark(ctx, path, id); err != nil {
		s.logger.Error("failed to delete mark", "error", err, "path", path, "id", id)
		return err
	}
	s.logger.Info("deleted mark", "path", path, "id", id)
	return nil
}

// FormatOffset renders a playback offset as m:ss, or h:mm:ss past an hour
func FormatOffset(d time.Duration) string {
	total := int(d / time.Second)
	if total < 0 {
		total = 0
	}
	h, m, sec := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}
