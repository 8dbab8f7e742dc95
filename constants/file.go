package constants

import "strings"

// MaxUploadBytes caps uploaded ticket documents.
const MaxUploadBytes = 10 << 20

// AllowedExtensions holds the file extensions accepted for conversion.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// AllowedContentTypes are the upload MIME types treated as PDF.
var AllowedContentTypes = map[string]struct{}{
	"application/pdf":          {},
	"application/x-pdf":        {},
	"application/octet-stream": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}
