package filetype

import (
	"path/filepath"
	"strings"
)

// Kind represents the variant kind of a library file.
type Kind string

const (
	// KindJPEG represents a JPEG (or other directly displayable) variant.
	KindJPEG Kind = "jpeg"
	// KindRAW represents a camera RAW variant.
	KindRAW Kind = "raw"
	// KindSidecar represents the per-photo JSON property sidecar.
	KindSidecar Kind = "sidecar"
	// KindOther represents a file the engine does not manage.
	KindOther Kind = "other"
)

// JPEGExtensions maps file extensions to whether they are treated as the
// JPEG variant of a photo.
var JPEGExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".jpe":  true,
	".png":  true,
	".tiff": true,
	".tif":  true,
	".heic": true,
	".heif": true,
	".webp": true,
}

// RAWExtensions maps file extensions to whether they are treated as the
// RAW variant of a photo.
var RAWExtensions = map[string]bool{
	".raw": true,
	".cr2": true,
	".cr3": true,
	".nef": true,
	".nrw": true,
	".arw": true,
	".dng": true,
	".raf": true,
	".orf": true,
	".rw2": true,
	".pef": true,
	".srw": true,
	".x3f": true,
}

// MimeTypes maps variant file extensions to their MIME types.
var MimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".jpe":  "image/jpeg",
	".png":  "image/png",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".heic": "image/heic",
	".heif": "image/heif",
	".webp": "image/webp",
	".dng":  "image/x-adobe-dng",
	".cr2":  "image/x-canon-cr2",
	".cr3":  "image/x-canon-cr3",
	".nef":  "image/x-nikon-nef",
	".arw":  "image/x-sony-arw",
	".raf":  "image/x-fuji-raf",
	".orf":  "image/x-olympus-orf",
	".rw2":  "image/x-panasonic-rw2",
	".json": "application/json",
}

// KindOf returns the variant kind for a file name or path.
func KindOf(name string) Kind {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case ext == ".json":
		return KindSidecar
	case JPEGExtensions[ext]:
		return KindJPEG
	case RAWExtensions[ext]:
		return KindRAW
	default:
		return KindOther
	}
}

// MimeType returns the MIME type for a file name or path.
// Returns "application/octet-stream" if the extension is not recognized.
func MimeType(name string) string {
	if mime, ok := MimeTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsVariant returns true if the file is a JPEG or RAW photo variant.
func IsVariant(name string) bool {
	k := KindOf(name)
	return k == KindJPEG || k == KindRAW
}

// BaseName returns the photo base name for a file: the file name with
// its extension removed. Files sharing a base name within one directory
// belong to the same logical photo.
func BaseName(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// SidecarName returns the JSON sidecar file name for a photo base name.
func SidecarName(base string) string {
	return base + ".json"
}
