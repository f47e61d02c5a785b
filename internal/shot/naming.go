package shot

import (
	"path/filepath"
	"strings"
)

const (
	// ConvertedSuffix tags converted directories and frames.
	ConvertedSuffix = "_SBS"
	// FrameExt is the frame extension, matched case-insensitively.
	FrameExt = ".exr"
)

// IsFrame reports whether name has the frame extension.
func IsFrame(name string) bool {
	return strings.EqualFold(filepath.Ext(name), FrameExt)
}

// IsConvertedTagged reports whether name carries the converted tag.
func IsConvertedTagged(name string) bool {
	return strings.Contains(name, ConvertedSuffix)
}

// IsSourceFrame reports whether name is an untagged frame.
func IsSourceFrame(name string) bool {
	return IsFrame(name) && !IsConvertedTagged(name)
}

// ConvertedFrameName maps a source frame to its converted name:
// "shot.0001.exr" becomes "shot.0001_SBS.exr". The original extension
// casing is kept.
func ConvertedFrameName(frame string) string {
	base := filepath.Base(frame)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + ConvertedSuffix + ext
}

// ConvertedDirName returns the converted directory name for a shot.
func ConvertedDirName(name string) string {
	return name + ConvertedSuffix
}

// IsConvertedDir reports whether a directory name is converted output.
func IsConvertedDir(name string) bool {
	return strings.HasSuffix(name, ConvertedSuffix)
}

// BesideDir returns the converted directory next to a source directory.
func BesideDir(sourcePath string) string {
	return filepath.Clean(sourcePath) + ConvertedSuffix
}

// DestinationDir returns the promoted location of a shot under destRoot.
func DestinationDir(destRoot, name string) string {
	return filepath.Join(destRoot, ConvertedDirName(name))
}
