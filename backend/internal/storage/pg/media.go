package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/itchan-dev/mediable/backend/internal/service"
	"github.com/itchan-dev/mediable/shared/domain"
	internal_errors "github.com/itchan-dev/mediable/shared/errors"
	shared_pg "github.com/itchan-dev/mediable/shared/storage/pg"
	"github.com/lib/pq"
)

var (
	_ service.MediaRepository = (*Storage)(nil)
	_ service.MediaFinder     = (*Storage)(nil)
	_ service.GCStorage       = (*Storage)(nil)
)

const mediaColumns = "id, name, file_name, file_path, mime_type, size_bytes, disk, generated_conversions, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMedia(row rowScanner, extra ...any) (domain.Media, error) {
	var m domain.Media
	dest := []any{
		&m.Id, &m.Name, &m.FileName, &m.FilePath, &m.MimeType, &m.SizeBytes, &m.Disk,
		pq.Array(&m.GeneratedConversions), &m.CreatedAt, &m.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return domain.Media{}, err
	}
	if m.GeneratedConversions == nil {
		m.GeneratedConversions = []domain.ConversionName{}
	}
	return m, nil
}

func (s *Storage) CreateMedia(ctx context.Context, data domain.MediaCreationData) (domain.Media, error) {
	return s.createMedia(ctx, s.db, data)
}

func (s *Storage) createMedia(ctx context.Context, q shared_pg.Querier, data domain.MediaCreationData) (domain.Media, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (name, file_name, file_path, mime_type, size_bytes, disk)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s`, s.media, mediaColumns)

	m, err := scanMedia(q.QueryRowContext(ctx, query,
		data.Name, data.FileName, data.FilePath, data.MimeType, data.SizeBytes, data.Disk))
	if err != nil {
		return domain.Media{}, fmt.Errorf("failed to insert media: %w", err)
	}
	return m, nil
}

func (s *Storage) GetMedia(ctx context.Context, id domain.MediaId) (domain.Media, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, mediaColumns, s.media)
	m, err := scanMedia(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Media{}, &internal_errors.ErrorWithStatusCode{Message: "Media not found", StatusCode: http.StatusNotFound}
	}
	if err != nil {
		return domain.Media{}, fmt.Errorf("failed to get media %d: %w", id, err)
	}
	return m, nil
}

// FindMedia loads the media with the given ids ordered by id. Unknown ids
// are skipped.
func (s *Storage) FindMedia(ctx context.Context, ids []domain.MediaId) ([]domain.Media, error) {
	if len(ids) == 0 {
		return []domain.Media{}, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ANY($1) ORDER BY id`, mediaColumns, s.media)
	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to find media: %w", err)
	}
	defer rows.Close()

	out := []domain.Media{}
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AddGeneratedConversion records that conversion exists for media id.
// Recording the same conversion twice is a no-op.
func (s *Storage) AddGeneratedConversion(ctx context.Context, id domain.MediaId, conversion domain.ConversionName) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET generated_conversions = array_append(generated_conversions, $2), updated_at = now()
		WHERE id = $1 AND NOT ($2 = ANY(generated_conversions))`, s.media)
	res, err := s.db.ExecContext(ctx, query, id, conversion)
	if err != nil {
		return fmt.Errorf("failed to record conversion %q of media %d: %w", conversion, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	var exists bool
	err = s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, s.media), id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check media %d: %w", id, err)
	}
	if !exists {
		return &internal_errors.ErrorWithStatusCode{Message: "Media not found", StatusCode: http.StatusNotFound}
	}
	return nil
}

// DeleteMedia removes the record and, through the foreign key, its associations.
// Files are left to the garbage collector.
func (s *Storage) DeleteMedia(ctx context.Context, id domain.MediaId) error {
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.media), id)
	if err != nil {
		return fmt.Errorf("failed to delete media %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &internal_errors.ErrorWithStatusCode{Message: "Media not found", StatusCode: http.StatusNotFound}
	}
	return nil
}

func (s *Storage) GetAllFilePaths(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT file_path FROM %s`, s.media))
	if err != nil {
		return nil, fmt.Errorf("failed to list file paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

func (s *Storage) GetAllMediaIds(ctx context.Context) ([]domain.MediaId, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT id FROM %s`, s.media))
	if err != nil {
		return nil, fmt.Errorf("failed to list media ids: %w", err)
	}
	defer rows.Close()

	var ids []domain.MediaId
	for rows.Next() {
		var id domain.MediaId
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
