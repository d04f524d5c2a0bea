// Package media defines the artifact model: immutable references to media
// files plus the closed extension/kind vocabulary that the rest of clipforge
// validates against. Edits never mutate an artifact; every successful edit
// produces a new one.
package media

import (
	"path/filepath"
	"sort"
	"strings"
)

// Kind classifies an artifact by its media type.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
	KindImage Kind = "image"
)

// extKinds is the closed allow-list of supported extensions.
// Extensions outside this map are rejected at upload time, not coerced.
var extKinds = map[string]Kind{
	// Audio
	"mp3":  KindAudio,
	"wav":  KindAudio,
	"flac": KindAudio,
	"aac":  KindAudio,
	"ogg":  KindAudio,
	"m4a":  KindAudio,
	// Video
	"mp4":  KindVideo,
	"mov":  KindVideo,
	"mkv":  KindVideo,
	"webm": KindVideo,
	"avi":  KindVideo,
	// Image
	"png":  KindImage,
	"jpg":  KindImage,
	"jpeg": KindImage,
	"gif":  KindImage,
	"webp": KindImage,
	"bmp":  KindImage,
}

// KindForFilename looks up the media kind for a filename by extension.
// The lookup is total: unknown or missing extensions return ok=false
// rather than an error or panic.
func KindForFilename(name string) (Kind, bool) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ext == "" {
		return "", false
	}
	kind, ok := extKinds[ext]
	return kind, ok
}

// KnownExtension reports whether ext (without the leading dot) is in the
// allow-list.
func KnownExtension(ext string) bool {
	_, ok := extKinds[strings.ToLower(strings.TrimPrefix(ext, "."))]
	return ok
}

// AllowedExtensions returns the allow-list in sorted order, for display.
func AllowedExtensions() []string {
	exts := make([]string, 0, len(extKinds))
	for ext := range extKinds {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Artifact is an immutable reference to a piece of media content.
// Location is an absolute filesystem path owned by the Store; the core only
// reads it, never deletes or rewrites it.
type Artifact struct {
	Filename string
	Location string
	Kind     Kind
}
