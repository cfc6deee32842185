package domain

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// PlayMode controls how the queue advances when a track ends
type PlayMode string

const (
	PlayModeList   PlayMode = "list"   // Advance in order, wrap at the end
	PlayModeRandom PlayMode = "random" // Pick a random track
	PlayModeSingle PlayMode = "single" // Repeat the current track
)

// Valid reports whether m is one of the known play modes
func (m PlayMode) Valid() bool {
	switch m {
	case PlayModeList, PlayModeRandom, PlayModeSingle:
		return true
	}
	return false
}

// Next returns the mode that follows m in the list -> random -> single cycle
func (m PlayMode) Next() PlayMode {
	switch m {
	case PlayModeList:
		return PlayModeRandom
	case PlayModeRandom:
		return PlayModeSingle
	default:
		return PlayModeList
	}
}

// Label returns a short display name
func (m PlayMode) Label() string {
	switch m {
	case PlayModeRandom:
		return "shuffle"
	case PlayModeSingle:
		return "repeat one"
	default:
		return "repeat all"
	}
}

// PlaylistItem is one queued track.
// JSON names match the persisted form so existing queues keep loading.
type PlaylistItem struct {
	ID        string `json:"id"`   // Unique within the queue
	Name      string `json:"name"` // Display title
	Artist    string `json:"artist"`
	URL       string `json:"url"` // Playable URL
	Cover     string `json:"cover,omitempty"`
	Lrc       string `json:"lrc,omitempty"`
	Path      string `json:"path"` // Logical path on the server, used for favorites and marks
	StorageID uint   `json:"storage_id,omitempty"`
	Size      int64  `json:"size,omitempty"` // Byte length, 0 when unknown
}

// HasSize reports whether the item carries a file size for fingerprinting
func (p PlaylistItem) HasSize() bool {
	return p.Size > 0
}

// Track converts the item into the descriptor a playback widget expects
func (p PlaylistItem) Track() Track {
	return Track{
		Name:   p.Name,
		Artist: p.Artist,
		URL:    p.URL,
		Cover:  p.Cover,
		Lrc:    p.Lrc,
	}
}

// NewItemID builds a queue id from a path and a timestamp so repeated adds of
// the same file stay distinct.
func NewItemID(p string, at time.Time) string {
	return fmt.Sprintf("%s-%d", p, at.UnixMilli())
}

// Track is the widget-side view of a queued item
type Track struct {
	Name   string
	Artist string
	URL    string
	Cover  string
	Lrc    string
}

// MediaKind discriminates the three favorite collections
type MediaKind string

const (
	MediaKindAudio MediaKind = "audio"
	MediaKindVideo MediaKind = "video"
	MediaKindImage MediaKind = "image"
)

// MediaKinds lists every kind in display order
var MediaKinds = []MediaKind{MediaKindAudio, MediaKindVideo, MediaKindImage}

// Valid reports whether k is a known media kind
func (k MediaKind) Valid() bool {
	switch k {
	case MediaKindAudio, MediaKindVideo, MediaKindImage:
		return true
	}
	return false
}

// HasMarks reports whether the server aggregates marks for this kind
func (k MediaKind) HasMarks() bool {
	return k == MediaKindAudio || k == MediaKindVideo
}

var kindExtensions = map[MediaKind][]string{
	MediaKindAudio: {".mp3", ".flac", ".ogg", ".m4a", ".wav", ".opus", ".aac", ".ape", ".wma"},
	MediaKindVideo: {".mp4", ".mkv", ".webm", ".avi", ".mov", ".flv", ".m4v", ".ts"},
	MediaKindImage: {".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".svg"},
}

// KindOf guesses the media kind from a file name's extension
func KindOf(name string) (MediaKind, bool) {
	ext := strings.ToLower(path.Ext(name))
	for _, kind := range MediaKinds {
		for _, e := range kindExtensions[kind] {
			if e == ext {
				return kind, true
			}
		}
	}
	return "", false
}

// Folder is a user-owned favorites folder
type Folder struct {
	ID          uint      `json:"id"`
	UserID      uint      `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Favorite is one favorited file. Kind is filled in client side.
type Favorite struct {
	ID           uint      `json:"id"`
	Kind         MediaKind `json:"kind,omitempty"`
	UserID       uint      `json:"user_id"`
	FolderID     uint      `json:"folder_id"`
	StorageID    uint      `json:"storage_id"`
	OriginalPath string    `json:"original_path"`
	FileName     string    `json:"file_name"`
	Note         string    `json:"note"`
	Fingerprint  string    `json:"fingerprint"`
	CreatedAt    time.Time `json:"created_at"`
}

// MediaMark is a timestamped annotation on a media file
type MediaMark struct {
	ID         uint    `json:"id"`
	TimeSecond float64 `json:"time_second"`
	Title      string  `json:"title"`
	Content    string  `json:"content"`
}

// Position returns the mark's offset as a duration
func (m MediaMark) Position() time.Duration {
	return time.Duration(m.TimeSecond * float64(time.Second))
}

// MediaWithMarks groups every mark a user placed on one favorited file
type MediaWithMarks struct {
	Kind         MediaKind   `json:"kind,omitempty"`
	FolderID     uint        `json:"folder_id"`
	FolderName   string      `json:"folder_name"`
	MediaID      uint        `json:"media_id"`
	FileName     string      `json:"file_name"`
	OriginalPath string      `json:"original_path"`
	StorageID    uint        `json:"storage_id"`
	Marks        []MediaMark `json:"marks"`
}

// FileObject is a file or directory entry on the server
type FileObject struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	IsDir    bool      `json:"is_dir"`
	Modified time.Time `json:"modified"`
	RawURL   string    `json:"raw_url"`
	Sign     string    `json:"sign"`
	Thumb    string    `json:"thumb"`
	Type     int       `json:"type"`
	Provider string    `json:"provider"`
}
