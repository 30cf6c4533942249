// Package upload validates declared upload types and sizes and names stored files.
package upload

import (
	"crypto/rand"
	"errors"
	"mime"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	MaxPhotoBytes  int64 = 5 << 20
	MaxResumeBytes int64 = 10 << 20
)

// Accepted types without a stored extension of their own are kept as
// opaque downloads.
const (
	OpaqueExtension = ".bin"
	OpaqueType      = "application/octet-stream"
)

var (
	ErrTooLarge      = errors.New("File too large")
	ErrPhotoType     = errors.New("Only image files are allowed")
	ErrResumeType    = errors.New("Only PDF, DOC, or DOCX files are allowed")
	ErrMissingType   = errors.New("File content type is required")
	ErrEmptyUpload   = errors.New("Uploaded file is empty")
	resumeExtensions = map[string]string{
		"application/pdf":    ".pdf",
		"application/msword": ".doc",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	}
	// Photo types stored under their own extension. Other image types,
	// SVG included, are stored as OpaqueExtension.
	imageExtensions = map[string]string{
		"image/jpeg":  ".jpg",
		"image/pjpeg": ".jpg",
		"image/png":   ".png",
		"image/gif":   ".gif",
		"image/webp":  ".webp",
		"image/avif":  ".avif",
		"image/bmp":   ".bmp",
		"image/heic":  ".heic",
		"image/heif":  ".heif",
		"image/tiff":  ".tiff",
	}
)

// Stored files are served by extension; an extension the mime table does not
// know would make the file server sniff the body instead.
func init() {
	_ = mime.AddExtensionType(OpaqueExtension, OpaqueType)
	for _, table := range []map[string]string{imageExtensions, resumeExtensions} {
		for mt, ext := range table {
			if mime.TypeByExtension(ext) == "" {
				_ = mime.AddExtensionType(ext, mt)
			}
		}
	}
}

// Rule is the acceptance policy for one upload kind.
type Rule struct {
	MaxBytes int64
	accepts  func(mediaType string) bool
	typeErr  error
}

var Photo = Rule{
	MaxBytes: MaxPhotoBytes,
	accepts:  func(mt string) bool { return strings.HasPrefix(mt, "image/") },
	typeErr:  ErrPhotoType,
}

var Resume = Rule{
	MaxBytes: MaxResumeBytes,
	accepts: func(mt string) bool {
		_, ok := resumeExtensions[mt]
		return ok
	},
	typeErr: ErrResumeType,
}

// MediaType normalises a Content-Type header value, dropping parameters.
func MediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

// Check validates the declared content type and size. Nothing is read from
// the file body; the declared type is authoritative.
func (r Rule) Check(contentType string, size int64) error {
	mt := MediaType(contentType)
	if mt == "" {
		return ErrMissingType
	}
	if !r.accepts(mt) {
		return r.typeErr
	}
	if size <= 0 {
		return ErrEmptyUpload
	}
	if size > r.MaxBytes {
		return ErrTooLarge
	}
	return nil
}

// Extension maps an accepted media type to the extension it is stored
// under. The client's filename never contributes.
func Extension(contentType string) string {
	mt := MediaType(contentType)
	if ext, ok := imageExtensions[mt]; ok {
		return ext
	}
	if ext, ok := resumeExtensions[mt]; ok {
		return ext
	}
	return OpaqueExtension
}

// NewName returns a collision-resistant, time-sortable storage name.
func NewName(prefix, ext string) string {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader)
	return prefix + "-" + strings.ToLower(id.String()) + ext
}
