package openlist

import (
	"context"

	"github.com/cantoplayer/canto/internal/domain"
)

type fsRequest struct {
	Path     string `json:"path"`
	Password string `json:"password"`
	Page     int    `json:"page,omitempty"`
	PerPage  int    `json:"per_page,omitempty"`
	Refresh  bool   `json:"refresh,omitempty"`
}

type fsListResponse struct {
	Content []domain.FileObject `json:"content"`
	Total   int                 `json:"total"`
}

// GetFile returns the metadata of a single file or directory
func (c *Client) GetFile(ctx context.Context, path string) (*domain.FileObject, error) {
	var obj domain.FileObject
	if err := c.post(ctx, "/fs/get", nil, fsRequest{Path: path}, &obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

// ListDir returns the entries of a directory
func (c *Client) ListDir(ctx context.Context, path string) ([]domain.FileObject, error) {
	var resp fsListResponse
	if err := c.post(ctx, "/fs/list", nil, fsRequest{Path: path, Page: 1}, &resp); err != nil {
		return nil, err
	}
	if resp.Content == nil {
		return []domain.FileObject{}, nil
	}
	return resp.Content, nil
}

// DownloadURL returns the /d link for a path, signed when the server requires it
func (c *Client) DownloadURL(path, sign string) string {
	u := c.baseURL + "/d" + escapePath(path)
	if sign != "" {
		u += "?sign=" + sign
	}
	return u
}
