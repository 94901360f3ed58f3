package document

import (
	"fmt"
	"slices"
)

const DefaultMaxUploadBytes int64 = 10 << 20

var (
	// MatchExtensions are accepted by the ATS endpoints. .doc passes the
	// filter but cannot be extracted.
	MatchExtensions = []string{".pdf", ".doc", ".docx"}
	// ResumeExtensions are accepted by the resume upload endpoint.
	ResumeExtensions = []string{".pdf", ".doc", ".docx", ".txt"}
)

// ValidateUpload checks the extension against allowed and the size against max.
// A max of zero or less uses DefaultMaxUploadBytes.
func ValidateUpload(filename string, size, max int64, allowed []string) error {
	if max <= 0 {
		max = DefaultMaxUploadBytes
	}
	if !slices.Contains(allowed, Ext(filename)) {
		return fmt.Errorf("%w: only %v files are allowed", ErrUnsupportedFileType, allowed)
	}
	if size > max {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, size, max)
	}
	return nil
}
