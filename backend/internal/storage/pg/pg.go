package pg

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/itchan-dev/mediable/shared/config"
	internal_errors "github.com/itchan-dev/mediable/shared/errors"
	"github.com/itchan-dev/mediable/shared/logger"
	shared_pg "github.com/itchan-dev/mediable/shared/storage/pg"
	"github.com/lib/pq"
)

// foreign_key_violation
const fkViolation = "23503"

type Storage struct {
	db        *sql.DB
	media     string
	mediables string
}

func New(ctx context.Context, cfg *config.Config) (*Storage, error) {
	logger.Log.Info("connecting to db", "host", cfg.Private.Pg.Host, "dbname", cfg.Private.Pg.Dbname)
	db, err := shared_pg.Connect(ctx, cfg, shared_pg.DefaultConnectionConfig())
	if err != nil {
		return nil, err
	}
	logger.Log.Info("connected to db")
	return &Storage{
		db:        db,
		media:     shared_pg.Table(cfg.MediaTable()),
		mediables: shared_pg.Table(cfg.MediablesTable()),
	}, nil
}

func (s *Storage) Cleanup() error {
	return s.db.Close()
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// mediaNotFound turns a foreign key violation on the pivot into a 404.
func mediaNotFound(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == fkViolation {
		return &internal_errors.ErrorWithStatusCode{Message: "Media not found", StatusCode: http.StatusNotFound}
	}
	return err
}
