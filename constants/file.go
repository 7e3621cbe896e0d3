package constants

import "strings"

// AllowedImageExtensions holds the receipt image types accepted for upload.
var AllowedImageExtensions = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
	"pdf":  "application/pdf",
}

// MaxImageBytes caps the size of an uploaded receipt image.
const MaxImageBytes = 10 << 20

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
