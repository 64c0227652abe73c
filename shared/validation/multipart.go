package validation

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
)

// multipartOverhead is room for the form fields and part headers.
const multipartOverhead = 1 << 20

// Upload is a single file taken from a multipart upload request.
type Upload struct {
	File     multipart.File
	Filename string
	Name     string
	Size     int64
	MimeType string
}

// ParseUpload enforces maxFileSize, parses the form and returns the "file"
// part together with the optional "name" field. Exceeding the limit makes
// the server stop reading, so clients may see a connection reset.
func ParseUpload(w http.ResponseWriter, r *http.Request, maxFileSize int64, allowedMimes []string) (*Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFileSize+multipartOverhead)
	if err := r.ParseMultipartForm(maxFileSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, fmt.Errorf("%w: limit is %d bytes", ErrPayloadTooLarge, maxFileSize)
		}
		return nil, fmt.Errorf("%w: %v", ErrMissingFile, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, ErrMissingFile
	}
	if header.Size > maxFileSize {
		file.Close()
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrPayloadTooLarge, maxFileSize)
	}

	mimeType, err := DetectMimeType(header, file)
	if err != nil {
		file.Close()
		return nil, err
	}
	if !slices.Contains(allowedMimes, mimeType) {
		file.Close()
		return nil, fmt.Errorf("%w: %s (file: %s)", ErrInvalidMimeType, mimeType, header.Filename)
	}

	return &Upload{
		File:     file,
		Filename: header.Filename,
		Name:     r.FormValue("name"),
		Size:     header.Size,
		MimeType: mimeType,
	}, nil
}

// DetectMimeType sniffs the content first. The part's Content-Type and then
// the file extension are consulted only when sniffing finds nothing specific,
// and never to claim an image type the content does not have.
func DetectMimeType(header *multipart.FileHeader, file multipart.File) (string, error) {
	buf := make([]byte, 512)
	n, err := file.Read(buf)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read uploaded file: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind uploaded file: %w", err)
	}
	mimeType := http.DetectContentType(buf[:n])

	if isGeneric(mimeType) {
		for _, declared := range []string{
			header.Header.Get("Content-Type"),
			mime.TypeByExtension(strings.ToLower(filepath.Ext(header.Filename))),
		} {
			if declared != "" && !isGeneric(declared) && !strings.HasPrefix(declared, "image/") {
				mimeType = declared
				break
			}
		}
	}

	// drop parameters such as charset
	if parsed, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = parsed
	}
	return mimeType, nil
}

// isGeneric reports whether a sniffed or declared type says nothing beyond
// "binary" or "text".
func isGeneric(mimeType string) bool {
	base, _, _ := strings.Cut(mimeType, ";")
	switch strings.TrimSpace(base) {
	case "application/octet-stream", "text/plain":
		return true
	}
	return false
}
