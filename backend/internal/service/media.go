package service

import (
	"context"
	"fmt"
	"html"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/itchan-dev/mediable/shared/domain"
	"github.com/itchan-dev/mediable/shared/logger"
	"github.com/microcosm-cc/bluemonday"
)

const maxDisplayNameLen = 255

// to mock service in tests
type MediaService interface {
	Upload(ctx context.Context, in UploadInput) (domain.Media, error)
	Get(ctx context.Context, id domain.MediaId) (domain.Media, error)
	Delete(ctx context.Context, id domain.MediaId) error
	Urls(m domain.Media) domain.MediaUrls
}

type MediaRepository interface {
	CreateMedia(ctx context.Context, data domain.MediaCreationData) (domain.Media, error)
	GetMedia(ctx context.Context, id domain.MediaId) (domain.Media, error)
	DeleteMedia(ctx context.Context, id domain.MediaId) error
}

type MediaFileStorage interface {
	Save(r io.Reader, originalFilename string) (string, error)
	DeleteFile(filePath string) error
	Disk() string
	UrlGenerator
}

// UploadInput describes a file that passed request validation.
type UploadInput struct {
	Data      io.Reader
	Filename  string
	Name      string
	MimeType  string
	SizeBytes int64
}

type Media struct {
	repo      MediaRepository
	files     MediaFileStorage
	sanitizer *bluemonday.Policy
}

func NewMedia(repo MediaRepository, files MediaFileStorage) MediaService {
	return &Media{
		repo:      repo,
		files:     files,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// Upload stores the file and registers a media record for it. The stored
// file is removed again when the record cannot be created.
func (s *Media) Upload(ctx context.Context, in UploadInput) (domain.Media, error) {
	fileName := filepath.Base(in.Filename)
	name := s.displayName(in.Name, fileName)

	path, err := s.files.Save(in.Data, fileName)
	if err != nil {
		return domain.Media{}, fmt.Errorf("failed to save uploaded file: %w", err)
	}

	m, err := s.repo.CreateMedia(ctx, domain.MediaCreationData{
		Name:      name,
		FileName:  fileName,
		FilePath:  path,
		MimeType:  in.MimeType,
		SizeBytes: in.SizeBytes,
		Disk:      s.files.Disk(),
	})
	if err != nil {
		if delErr := s.files.DeleteFile(path); delErr != nil {
			logger.Log.Error("failed to remove file of rejected upload", "path", path, "error", delErr)
		}
		return domain.Media{}, err
	}

	logger.Log.Info("media uploaded", "media_id", m.Id, "mime_type", m.MimeType, "size_bytes", m.SizeBytes)
	return m, nil
}

func (s *Media) Get(ctx context.Context, id domain.MediaId) (domain.Media, error) {
	return s.repo.GetMedia(ctx, id)
}

// Delete removes the record and its associations. Files stay on disk until
// the garbage collector finds them unreferenced.
func (s *Media) Delete(ctx context.Context, id domain.MediaId) error {
	if err := s.repo.DeleteMedia(ctx, id); err != nil {
		return err
	}
	logger.Log.Info("media deleted", "media_id", id)
	return nil
}

func (s *Media) Urls(m domain.Media) domain.MediaUrls {
	urls := domain.MediaUrls{
		Original:    s.files.Url(m, ""),
		Conversions: make(map[string]string, len(m.GeneratedConversions)),
	}
	for _, name := range m.GeneratedConversions {
		urls.Conversions[name] = s.files.Url(m, name)
	}
	return urls
}

// displayName strips markup from the user supplied name. The file name
// without extension is used when nothing remains.
func (s *Media) displayName(name, fileName string) string {
	// bluemonday escapes what it keeps; names are stored as plain text
	cleaned := strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(name)))
	if cleaned == "" {
		cleaned = strings.TrimSuffix(fileName, filepath.Ext(fileName))
	}
	if utf8.RuneCountInString(cleaned) > maxDisplayNameLen {
		cleaned = string([]rune(cleaned)[:maxDisplayNameLen])
	}
	return cleaned
}
