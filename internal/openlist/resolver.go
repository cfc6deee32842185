package openlist

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/cantoplayer/canto/internal/domain"
)

const unknownArtist = "Unknown"

// coverNames are the base names recognised as album art next to a track
var coverNames = []string{"front", "cover", "folder"}

// FileSource is what the resolver needs from the server
type FileSource interface {
	GetFile(ctx context.Context, path string) (*domain.FileObject, error)
	ListDir(ctx context.Context, path string) ([]domain.FileObject, error)
	DownloadURL(path, sign string) string
}

// Resolver turns server paths into queue items
type Resolver struct {
	files  FileSource
	now    func() time.Time
	logger *slog.Logger
}

// NewResolver creates a resolver over files
func NewResolver(files FileSource, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{files: files, now: time.Now, logger: logger}
}

// Resolve builds a PlaylistItem for the file at p, picking up a sibling
// .lrc and cover image when the directory has them
func (r *Resolver) Resolve(ctx context.Context, p string) (domain.PlaylistItem, error) {
	if !strings.HasPrefix(p, "/") {
		return domain.PlaylistItem{}, fmt.Errorf("resolve %q: %w", p, domain.ErrInvalidPath)
	}
	p = path.Clean(p)

	file, err := r.files.GetFile(ctx, p)
	if err != nil {
		return domain.PlaylistItem{}, fmt.Errorf("resolve %s: %w", p, err)
	}
	if file.IsDir {
		return domain.PlaylistItem{}, fmt.Errorf("resolve %s: is a directory", p)
	}

	name := path.Base(p)
	artist, _ := ParseTitle(name)

	// Name stays the full file name since favorites fingerprint it
	item := domain.PlaylistItem{
		ID:     domain.NewItemID(p, r.now()),
		Name:   name,
		Artist: artist,
		URL:    file.RawURL,
		Path:   p,
		Size:   file.Size,
	}
	if item.URL == "" {
		item.URL = r.files.DownloadURL(p, file.Sign)
	}

	dir := path.Dir(p)
	siblings, err := r.files.ListDir(ctx, dir)
	if err != nil {
		r.logger.Warn("failed to list directory for lyrics and cover", "error", err, "dir", dir)
		item.Cover = file.Thumb
		return item, nil
	}

	stem := strings.TrimSuffix(name, path.Ext(name))
	coverRank := 0
	for _, entry := range siblings {
		if entry.IsDir {
			continue
		}
		entryStem := strings.TrimSuffix(entry.Name, path.Ext(entry.Name))
		link := r.files.DownloadURL(path.Join(dir, entry.Name), entry.Sign)

		if strings.ToLower(path.Ext(entry.Name)) == ".lrc" {
			if entryStem == stem {
				item.Lrc = link
			}
			continue
		}
		if rank := coverRankOf(entry.Name, stem); rank > coverRank {
			item.Cover = link
			coverRank = rank
		}
	}
	if item.Cover == "" {
		item.Cover = file.Thumb
	}

	r.logger.Debug("resolved track", "path", p, "lrc", item.Lrc != "", "cover", item.Cover != "")
	return item, nil
}

// ParseTitle splits an "Artist - Title.ext" file name. Names without the
// separator get the Unknown artist.
func ParseTitle(name string) (artist, title string) {
	stem := strings.TrimSuffix(name, path.Ext(name))
	if a, t, ok := strings.Cut(stem, " - "); ok && strings.TrimSpace(a) != "" && strings.TrimSpace(t) != "" {
		return strings.TrimSpace(a), strings.TrimSpace(t)
	}
	return unknownArtist, stem
}

// coverRankOf scores an image as album art: an image named after the track
// beats a generic cover name, anything else scores 0
func coverRankOf(name, trackStem string) int {
	if kind, ok := domain.KindOf(name); !ok || kind != domain.MediaKindImage {
		return 0
	}
	stem := strings.ToLower(strings.TrimSuffix(name, path.Ext(name)))
	if stem == strings.ToLower(trackStem) {
		return 2
	}
	for _, c := range coverNames {
		if stem == c {
			return 1
		}
	}
	return 0
}

// escapePath percent-encodes each segment of a server path
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
