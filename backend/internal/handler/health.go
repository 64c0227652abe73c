package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/itchan-dev/mediable/shared/api"
	"github.com/itchan-dev/mediable/shared/logger"
	"github.com/itchan-dev/mediable/shared/utils"
)

const (
	readyTimeout = 2 * time.Second
	statusOK     = "ok"
)

// Health answers as long as the process serves HTTP.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": statusOK})
}

// Ready reports 503 when the database is unreachable, the conversion queue
// is closed or full, or the media root cannot be written. Unset checkers are
// skipped.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	checks := map[string]string{}
	healthy := true
	record := func(name string, err error) {
		if err == nil {
			checks[name] = statusOK
			return
		}
		healthy = false
		checks[name] = err.Error()
		logger.Log.Warn("readiness check failed", "check", name, "error", err)
	}

	if h.ready.DB != nil {
		if err := h.ready.DB.Ping(ctx); err != nil {
			record("database", fmt.Errorf("unavailable: %w", err))
		} else {
			record("database", nil)
		}
	}
	if h.ready.Queue != nil {
		record("conversion_queue", queueError(h.ready.Queue))
	}
	if h.ready.Files != nil {
		record("media_root", h.ready.Files.CheckWritable())
	}

	resp := api.ReadinessResponse{Status: statusOK, Checks: checks}
	status := http.StatusOK
	if !healthy {
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}
	utils.WriteJSON(w, status, resp)
}

func queueError(q QueueMonitor) error {
	s := q.Status()
	switch {
	case s.Closed:
		return fmt.Errorf("closed")
	case s.Saturated():
		return fmt.Errorf("saturated (%d/%d)", s.Depth, s.Capacity)
	}
	return nil
}
