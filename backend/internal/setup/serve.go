package setup

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/itchan-dev/mediable/shared/logger"
)

type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

type ConversionPool interface {
	Start(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// Serve runs the server, the conversion pool and the optional background
// tasks until ctx is cancelled or one of them fails. The pool is drained only
// after the server has stopped, so in-flight requests can still submit work.
// Each shutdown step gets its own timeout.
func Serve(ctx context.Context, server HTTPServer, pool ConversionPool, timeout time.Duration, background ...func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)

	pool.Start(gctx)
	for _, task := range background {
		g.Go(func() error {
			return task(gctx)
		})
	}
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		logger.Log.Info("shutting down server")
		serverCtx, cancel := context.WithTimeout(context.Background(), timeout)
		serverErr := server.Shutdown(serverCtx)
		cancel()

		logger.Log.Info("draining conversion pool")
		poolCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return errors.Join(serverErr, pool.Shutdown(poolCtx))
	})

	return g.Wait()
}
