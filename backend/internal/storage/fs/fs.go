package fs

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/itchan-dev/mediable/backend/internal/service"
	"github.com/itchan-dev/mediable/shared/domain"
)

const (
	originalsDir   = "originals"
	conversionsDir = "conversions"
	diskName       = "local"
)

var ErrOutsideRoot = errors.New("path escapes storage root")

// Storage keeps media files below rootPath and builds their public URLs.
type Storage struct {
	rootPath string
	baseURL  string
	now      func() time.Time
}

var (
	_ service.MediaFileStorage = (*Storage)(nil)
	_ service.GCMediaStorage   = (*Storage)(nil)
)

func New(rootPath, baseURL string) (*Storage, error) {
	p := filepath.Clean(rootPath)

	if err := os.MkdirAll(p, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root storage directory %s: %w", p, err)
	}

	return &Storage{rootPath: p, baseURL: strings.TrimRight(baseURL, "/"), now: time.Now}, nil
}

// CheckWritable creates and removes a scratch file in the storage root.
func (s *Storage) CheckWritable() error {
	f, err := os.CreateTemp(s.rootPath, ".ready-*")
	if err != nil {
		return fmt.Errorf("media root %s is not writable: %w", s.rootPath, err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func (s *Storage) Disk() string {
	return diskName
}

// Save writes an uploaded file to originals/<yyyy>/<mm>/<uuid><ext> and
// returns that relative path.
func (s *Storage) Save(fileData io.Reader, originalFilename string) (string, error) {
	now := s.now().UTC()
	relativePath := path.Join(
		originalsDir,
		fmt.Sprintf("%04d", now.Year()),
		fmt.Sprintf("%02d", int(now.Month())),
		uuid.NewString()+safeExt(originalFilename),
	)

	dst, err := s.Create(relativePath)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, fileData); err != nil {
		dst.Close()
		s.DeleteFile(relativePath)
		return "", fmt.Errorf("failed to copy file data: %w", err)
	}
	if err := dst.Close(); err != nil {
		s.DeleteFile(relativePath)
		return "", fmt.Errorf("failed to flush file: %w", err)
	}

	return relativePath, nil
}

// Open opens a stored file for reading.
func (s *Storage) Open(filePath string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(filePath)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Create creates or truncates a stored file, making parent directories as needed.
func (s *Storage) Create(filePath string) (io.WriteCloser, error) {
	fullPath, err := s.resolve(filePath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create subdirectories: %w", err)
	}
	dst, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}
	return dst, nil
}

// ConversionPath is where conversion of m is stored:
// conversions/<media id>/<conversion>-<stem><ext>.
func (s *Storage) ConversionPath(m domain.Media, conversion domain.ConversionName) string {
	base := path.Base(filepath.ToSlash(m.FilePath))
	stem := strings.TrimSuffix(base, path.Ext(base))
	return path.Join(conversionsDir, strconv.FormatInt(m.Id, 10), conversion+"-"+stem+m.ConversionExt())
}

// ConversionOwner parses the media id out of a conversion path.
func (s *Storage) ConversionOwner(filePath string) (domain.MediaId, bool) {
	parts := strings.Split(filepath.ToSlash(filePath), "/")
	if len(parts) != 3 || parts[0] != conversionsDir {
		return 0, false
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Url returns the public URL of the original file, or of the named
// conversion when conversion is not empty.
func (s *Storage) Url(m domain.Media, conversion domain.ConversionName) string {
	p := filepath.ToSlash(m.FilePath)
	if conversion != "" {
		p = s.ConversionPath(m, conversion)
	}
	u, err := url.JoinPath(s.baseURL, strings.Split(p, "/")...)
	if err != nil {
		return s.baseURL + "/" + p
	}
	return u
}

// DeleteFile removes a single file. A missing file is not an error.
func (s *Storage) DeleteFile(filePath string) error {
	fullPath, err := s.resolve(filePath)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// WalkFiles lists every stored file as a slash separated path relative to the root.
func (s *Storage) WalkFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(s.rootPath, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.rootPath, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk media directory: %w", err)
	}
	return files, nil
}

func (s *Storage) GetFileModTime(filePath string) (time.Time, error) {
	fullPath, err := s.resolve(filePath)
	if err != nil {
		return time.Time{}, err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// resolve maps a relative storage path to a path on disk that stays below the root.
func (s *Storage) resolve(filePath string) (string, error) {
	fullPath := filepath.Join(s.rootPath, filepath.FromSlash(filePath))
	rel, err := filepath.Rel(s.rootPath, fullPath)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, filePath)
	}
	return fullPath, nil
}

// safeExt keeps a short alphanumeric extension and drops anything else.
func safeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
