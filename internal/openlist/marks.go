package openlist

import (
	"context"

	"github.com/cantoplayer/canto/internal/domain"
)

const (
	methodListMarks  = "media_marks_list"
	methodCreateMark = "media_marks_create"
	methodUpdateMark = "media_marks_update"
	methodDeleteMark = "media_marks_delete"
)

// otherRequest is the body of /fs/other, which dispatches on method
type otherRequest struct {
	Path     string `json:"path"`
	Password string `json:"password"`
	Method   string `json:"method"`
	Data     any    `json:"data,omitempty"`
}

type deleteMarkData struct {
	ID uint `json:"id"`
}

func (c *Client) ListMarks(ctx context.Context, path string) ([]domain.MediaMark, error) {
	marks := []domain.MediaMark{}
	if err := c.post(ctx, "/fs/other", nil, otherRequest{Path: path, Method: methodListMarks}, &marks); err != nil {
		return nil, err
	}
	return marks, nil
}

func (c *Client) CreateMark(ctx context.Context, path string, in domain.MarkInput) (*domain.MediaMark, error) {
	in.ID = 0
	var mark domain.MediaMark
	if err := c.post(ctx, "/fs/other", nil, otherRequest{Path: path, Method: methodCreateMark, Data: in}, &mark); err != nil {
		return nil, err
	}
	return &mark, nil
}

func (c *Client) UpdateMark(ctx context.Context, path string, in domain.MarkInput) (*domain.MediaMark, error) {
	var mark domain.MediaMark
	if err := c.post(ctx, "/fs/other", nil, otherRequest{Path: path, Method: methodUpdateMark, Data: in}, &mark); err != nil {
		return nil, err
	}
	return &mark, nil
}

func (c *Client) DeleteMark(ctx context.Context, path string, id uint) error {
	return c.post(ctx, "/fs/other", nil, otherRequest{Path: path, Method: methodDeleteMark, Data: deleteMarkData{ID: id}}, nil)
}
