package openlist

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/cantoplayer/canto/internal/domain"
)

type updateNoteRequest struct {
	ID   uint   `json:"id"`
	Note string `json:"note"`
}

// favoritesPath returns the API prefix for a kind, e.g. /audio_favorites
func favoritesPath(kind domain.MediaKind) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("%q: %w", kind, domain.ErrUnsupportedKind)
	}
	return "/" + string(kind) + "_favorites", nil
}

func idQuery(id uint) url.Values {
	return url.Values{"id": {strconv.FormatUint(uint64(id), 10)}}
}

func (c *Client) ListFolders(ctx context.Context, kind domain.MediaKind) ([]domain.Folder, error) {
	prefix, err := favoritesPath(kind)
	if err != nil {
		return nil, err
	}
	folders := []domain.Folder{}
	if err := c.get(ctx, prefix+"/folder/list", nil, &folders); err != nil {
		return nil, err
	}
	return folders, nil
}

func (c *Client) GetFolder(ctx context.Context, kind domain.MediaKind, id uint) (*domain.Folder, error) {
	prefix, err := favoritesPath(kind)
	if err != nil {
		return nil, err
	}
	var folder domain.Folder
	if err := c.get(ctx, prefix+"/folder/get", idQuery(id), &folder); err != nil {
		return nil, err
	}
	return &folder, nil
}

func (c *Client) CreateFolder(ctx context.Context, kind domain.MediaKind, in domain.FolderInput) (*domain.Folder, error) {
	prefix, err := favoritesPath(kind)
	if err != nil {
		return nil, err
	}
	in.ID = 0
	var folder domain.Folder
	if err := c.post(ctx, prefix+"/folder/create", nil, in, &folder); err != nil {
		return nil, err
	}
	return &folder, nil
}

func (c *Client) UpdateFolder(ctx context.Context, kind domain.MediaKind, in domain.FolderInput) (*domain.Folder, error) {
	prefix, err := favoritesPath(kind)
	if err != nil {
		return nil, err
	}
	var folder domain.Folder
	if err := c.post(ctx, prefix+"/folder/update", nil, in, &folder); err != nil {
		return nil, err
	}
	return &folder, nil
}

func (c *Client) DeleteFolder(ctx context.Context, kind domain.MediaKind, id uint) error {
	prefix, err := favoritesPath(kind)
	if err != nil {
		return err
	}
	return c.post(ctx, prefix+"/folder/delete", idQuery(id), nil, nil)
}

func (c *Client) ListFavorites(ctx context.Context, kind domain.MediaKind, folderID uint) ([]domain.Favorite, error) {
	prefix, err := favoritesPath(kind)
	if err != nil {
		return nil, err
	}
	var query url.Values
	if folderID != 0 {
		query = idQuery(folderID)
	}
	favorites := []domain.Favorite{}
	if err := c.get(ctx, prefix+"/list", query, &favorites); err != nil {
		return nil, err
	}
	for i := range favorites {
		favorites[i].Kind = kind
	}
	return favorites, nil
}

func (c *Client) CreateFavorite(ctx context.Context, kind domain.MediaKind, req domain.CreateFavoriteRequest) (*domain.Favorite, error) {
	prefix, err := favoritesPath(kind)
	if err != nil {
		return nil, err
	}
	var fav domain.Favorite
	if err := c.post(ctx, prefix+"/create", nil, req, &fav); err != nil {
		return nil, err
	}
	fav.Kind = kind
	return &fav, nil
}

func (c *Client) UpdateFavoriteNote(ctx context.Context, kind domain.MediaKind, id uint, note string) (*domain.Favorite, error) {
	prefix, err := favoritesPath(kind)
	if err != nil {
		return nil, err
	}
	var fav domain.Favorite
	if err := c.post(ctx, prefix+"/update", nil, updateNoteRequest{ID: id, Note: note}, &fav); err != nil {
		return nil, err
	}
	fav.Kind = kind
	return &fav, nil
}

func (c *Client) DeleteFavorite(ctx context.Context, kind domain.MediaKind, id uint) error {
	prefix, err := favoritesPath(kind)
	if err != nil {
		return err
	}
	return c.post(ctx, prefix+"/delete", idQuery(id), nil, nil)
}

// ListAllMarks is only served for audio and video
func (c *Client) ListAllMarks(ctx context.Context, kind domain.MediaKind) ([]domain.MediaWithMarks, error) {
	if !kind.HasMarks() {
		return nil, fmt.Errorf("marks for %q: %w", kind, domain.ErrUnsupportedKind)
	}
	prefix, err := favoritesPath(kind)
	if err != nil {
		return nil, err
	}
	media := []domain.MediaWithMarks{}
	if err := c.get(ctx, prefix+"/all_marks", nil, &media); err != nil {
		return nil, err
	}
	for i := range media {
		media[i].Kind = kind
	}
	return media, nil
}
