package ocr

import "strings"

// MimePDF is the only multi-page document type the pipeline rasterizes.
const MimePDF = "application/pdf"

// SupportedMimeTypes lists the resource types selected for OCR: one
// multi-page document type followed by the raster image types the engines
// accept.
var SupportedMimeTypes = []string{
	MimePDF,
	"image/bmp",
	"image/jpeg",
	"image/jpg",
	"image/png",
	"image/webp",
	"image/x-portable-bitmap",
}

// ResourceFields is the projection requested from the store.
var ResourceFields = []string{
	"id",
	"mime",
	"file_extension",
	"encryption_applied",
}

func IsSupported(mime string) bool {
	mime = strings.ToLower(strings.TrimSpace(mime))
	for _, m := range SupportedMimeTypes {
		if m == mime {
			return true
		}
	}
	return false
}

// IsMultiPage reports whether the resource must go through page extraction.
func IsMultiPage(mime string) bool {
	return strings.EqualFold(strings.TrimSpace(mime), MimePDF)
}
