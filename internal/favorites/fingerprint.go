package favorites

import (
	"fmt"
	"unicode/utf16"

	"github.com/cantoplayer/canto/internal/domain"
)

const (
	fnvOffset32 = 2166136261
	fnvPrime32  = 16777619
)

// Fingerprint identifies a file by name and size so a favorite survives the
// file moving between folders. It is FNV-1a over the UTF-16 code units of
// "name_size", which is what the web client computes; hash/fnv works on
// bytes and would disagree for any non-ASCII name.
func Fingerprint(name string, size int64) string {
	h := uint32(fnvOffset32)
	for _, unit := range utf16.Encode([]rune(fmt.Sprintf("%s_%d", name, size))) {
		h ^= uint32(unit)
		h *= fnvPrime32
	}
	return fmt.Sprintf("%08x", h)
}

// ItemFingerprint fingerprints a queued item, falling back to its path when
// the size is unknown
func ItemFingerprint(item domain.PlaylistItem) string {
	if !item.HasSize() {
		return item.Path
	}
	return Fingerprint(item.Name, item.Size)
}
