package pg

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/itchan-dev/mediable/backend/internal/service"
	"github.com/itchan-dev/mediable/shared/domain"
	shared_pg "github.com/itchan-dev/mediable/shared/storage/pg"
	"github.com/lib/pq"
)

var _ service.AssociationStorage = (*Storage)(nil)

func (s *Storage) ListAssociations(ctx context.Context, owner domain.Owner) ([]domain.AttachedMedia, error) {
	query := fmt.Sprintf(`
		SELECT m.id, m.name, m.file_name, m.file_path, m.mime_type, m.size_bytes, m.disk,
		       m.generated_conversions, m.created_at, m.updated_at, p.channel
		FROM %s p
		JOIN %s m ON m.id = p.media_id
		WHERE p.mediable_type = $1 AND p.mediable_id = $2
		ORDER BY p.id`, s.mediables, s.media)

	rows, err := s.db.QueryContext(ctx, query, owner.Type, owner.Id)
	if err != nil {
		return nil, fmt.Errorf("failed to list media of %s %d: %w", owner.Type, owner.Id, err)
	}
	defer rows.Close()

	out := []domain.AttachedMedia{}
	for rows.Next() {
		var channel string
		m, err := scanMedia(rows, &channel)
		if err != nil {
			return nil, fmt.Errorf("failed to scan association: %w", err)
		}
		out = append(out, domain.AttachedMedia{Media: m, Channel: channel})
	}
	return out, rows.Err()
}

// SyncChannel inserts missing associations for ids and moves existing ones
// to channel. Returns the number of inserted rows.
func (s *Storage) SyncChannel(ctx context.Context, owner domain.Owner, ids []domain.MediaId, channel domain.ChannelName) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	created := 0
	err := shared_pg.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		n, err := s.upsertAssociations(ctx, tx, owner, ids, channel)
		created = n
		return err
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

func (s *Storage) upsertAssociations(ctx context.Context, q shared_pg.Querier, owner domain.Owner, ids []domain.MediaId, channel domain.ChannelName) (int, error) {
	// DISTINCT ON keeps the first occurrence of each id; one statement may not
	// touch the same conflicting row twice.
	query := fmt.Sprintf(`
		INSERT INTO %s (mediable_type, mediable_id, media_id, channel)
		SELECT $1, $2, d.media_id, $4
		FROM (
			SELECT DISTINCT ON (media_id) media_id, ord
			FROM unnest($3::bigint[]) WITH ORDINALITY AS t(media_id, ord)
			ORDER BY media_id, ord
		) d
		ORDER BY d.ord
		ON CONFLICT (mediable_type, mediable_id, media_id)
		DO UPDATE SET channel = EXCLUDED.channel, updated_at = now()
		RETURNING (xmax = 0) AS inserted`, s.mediables)

	rows, err := q.QueryContext(ctx, query, owner.Type, owner.Id, pq.Array(ids), channel)
	if err != nil {
		return 0, mediaNotFound(fmt.Errorf("failed to attach media: %w", err))
	}
	defer rows.Close()

	created := 0
	for rows.Next() {
		var inserted bool
		if err := rows.Scan(&inserted); err != nil {
			return 0, fmt.Errorf("failed to scan attach result: %w", err)
		}
		if inserted {
			created++
		}
	}
	if err := rows.Err(); err != nil {
		return 0, mediaNotFound(fmt.Errorf("failed to attach media: %w", err))
	}
	return created, nil
}

// DetachMedia deletes the owner's associations with ids, or all of them when ids is nil.
func (s *Storage) DetachMedia(ctx context.Context, owner domain.Owner, ids []domain.MediaId) (int, error) {
	var (
		res sql.Result
		err error
	)
	if ids == nil {
		res, err = s.db.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE mediable_type = $1 AND mediable_id = $2`, s.mediables),
			owner.Type, owner.Id)
	} else {
		res, err = s.db.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE mediable_type = $1 AND mediable_id = $2 AND media_id = ANY($3)`, s.mediables),
			owner.Type, owner.Id, pq.Array(ids))
	}
	if err != nil {
		return 0, fmt.Errorf("failed to detach media: %w", err)
	}
	return affected(res)
}

func (s *Storage) DetachChannel(ctx context.Context, owner domain.Owner, channel domain.ChannelName) (int, error) {
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE mediable_type = $1 AND mediable_id = $2 AND channel = $3`, s.mediables),
		owner.Type, owner.Id, channel)
	if err != nil {
		return 0, fmt.Errorf("failed to clear channel %q: %w", channel, err)
	}
	return affected(res)
}

func affected(res sql.Result) (int, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return int(n), nil
}
