package scanner

import (
	"path/filepath"
	"strings"
)

// VideoExtensions contains the video file extensions the scanner recognizes.
// The rename engine narrows this further with its configured allow-list.
var VideoExtensions = map[string]bool{
	".mkv":  true,
	".mp4":  true,
	".avi":  true,
	".m4v":  true,
	".ts":   true,
	".wmv":  true,
	".mov":  true,
	".webm": true,
	".flv":  true,
	".mpg":  true,
	".mpeg": true,
	".m2ts": true,
}

// sidecarExtensions are stripped before parsing so "Show.S01E02.en.srt" style
// names tokenize the same way as their video.
var sidecarExtensions = map[string]bool{
	".srt": true,
	".ass": true,
	".ssa": true,
	".sub": true,
	".idx": true,
	".nfo": true,
}

// DefaultAllowedExtensions is the media extension set accepted by a rename batch
// when the configuration does not override it.
var DefaultAllowedExtensions = []string{"mkv", "mp4", "avi", "mov", "wmv", "m4v"}

// SampleFileIndicators are strings that indicate a file is a sample.
var SampleFileIndicators = []string{
	"sample",
	"trailer",
	"proof",
}

// IsVideoFile checks if a filename has a video extension.
func IsVideoFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return VideoExtensions[ext]
}

// IsSampleFile checks if a filename indicates it's a sample file.
func IsSampleFile(filename string) bool {
	lower := strings.ToLower(filename)
	for _, indicator := range SampleFileIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// NormalizeExtension lowercases an extension and strips the leading dot,
// so ".MKV", "mkv" and "Mkv" compare equal.
func NormalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// ExtensionSet is a normalized set of allowed media extensions.
type ExtensionSet map[string]struct{}

// NewExtensionSet builds a set from extensions with or without leading dots.
func NewExtensionSet(exts []string) ExtensionSet {
	set := make(ExtensionSet, len(exts))
	for _, ext := range exts {
		if n := NormalizeExtension(ext); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

// Allows reports whether the filename's extension is in the set.
// Names without an extension are never allowed.
func (s ExtensionSet) Allows(filename string) bool {
	ext := NormalizeExtension(filepath.Ext(filename))
	if ext == "" {
		return false
	}
	_, ok := s[ext]
	return ok
}

// stripKnownExtension removes a trailing media or sidecar extension. Unknown
// suffixes are left alone: "Show.Name.S01E02" has no extension even though
// filepath.Ext would report ".S01E02".
func stripKnownExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return filename
	}
	if VideoExtensions[ext] || sidecarExtensions[ext] {
		return filename[:len(filename)-len(ext)]
	}
	return filename
}
