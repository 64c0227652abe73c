package setup

import (
	"context"
	"time"

	"github.com/itchan-dev/mediable/backend/internal/conversion"
	"github.com/itchan-dev/mediable/backend/internal/handler"
	"github.com/itchan-dev/mediable/backend/internal/service"
	"github.com/itchan-dev/mediable/backend/internal/storage/fs"
	"github.com/itchan-dev/mediable/backend/internal/storage/pg"
	"github.com/itchan-dev/mediable/backend/internal/worker"
	"github.com/itchan-dev/mediable/shared/config"
	"github.com/itchan-dev/mediable/shared/jwt"
	"github.com/itchan-dev/mediable/shared/middleware"
	"github.com/itchan-dev/mediable/shared/middleware/ratelimiter"
)

// jwtTTL only matters for tokens minted by this process; verification uses the token's exp.
const jwtTTL = 24 * time.Hour

// Dependencies struct to hold all initialized dependencies.
// UploadLimiter is nil when upload rate limiting is disabled.
type Dependencies struct {
	Config         *config.Config
	Storage        *pg.Storage
	Files          *fs.Storage
	Pool           *worker.Pool
	Mediables      *service.MediableFactory
	GC             *service.MediaGarbageCollector
	Handler        *handler.Handler
	AuthMiddleware *middleware.Auth
	UploadLimiter  *ratelimiter.KeyedRateLimiter
}

// SetupDependencies initializes all dependencies required for the application.
func SetupDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	storage, err := pg.New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	files, err := fs.New(cfg.Public.Media.RootDir, cfg.Public.Media.BaseURL)
	if err != nil {
		storage.Cleanup()
		return nil, err
	}

	conversions := cfg.Public.Conversions
	converter := conversion.New(files, storage, conversion.PresetsFromConfig(conversions.Presets))
	pool := worker.New(converter, worker.Config{
		Workers:     conversions.Workers,
		QueueSize:   conversions.QueueSize,
		MaxAttempts: conversions.MaxAttempts,
		RetryDelay:  conversions.RetryDelay.Std(),
	})

	mediables := service.NewMediableFactory(storage, storage, pool, files, service.OwnerTypesFromConfig(cfg.Public.Owners))
	media := service.NewMedia(storage, files)
	gc := service.NewMediaGarbageCollector(storage, files, cfg.Public.GC.SafetyThreshold.Std())

	var uploadLimiter *ratelimiter.KeyedRateLimiter
	if rl := cfg.Public.RateLimit; rl.UploadRPS > 0 {
		uploadLimiter = ratelimiter.New(rl.UploadRPS, max(rl.UploadBurst, 1), time.Hour)
	}

	return &Dependencies{
		Config:         cfg,
		Storage:        storage,
		Files:          files,
		Pool:           pool,
		Mediables:      mediables,
		GC:             gc,
		Handler:        handler.New(mediables, media, handler.Readiness{DB: storage, Queue: pool, Files: files}, cfg),
		AuthMiddleware: middleware.NewAuth(jwt.New(cfg.JwtKey(), jwtTTL)),
		UploadLimiter:  uploadLimiter,
	}, nil
}
