package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/itchan-dev/mediable/backend/internal/service"
	"github.com/itchan-dev/mediable/backend/internal/worker"
	"github.com/itchan-dev/mediable/shared/config"
	"github.com/itchan-dev/mediable/shared/domain"
	internal_errors "github.com/itchan-dev/mediable/shared/errors"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type QueueMonitor interface {
	Status() worker.Status
}

type WritableChecker interface {
	CheckWritable() error
}

// Readiness lists what /ready inspects.
type Readiness struct {
	DB    HealthChecker
	Queue QueueMonitor
	Files WritableChecker
}

type Handler struct {
	mediables *service.MediableFactory
	media     service.MediaService
	ready     Readiness
	cfg       *config.Config
}

func New(mediables *service.MediableFactory, media service.MediaService, ready Readiness, cfg *config.Config) *Handler {
	return &Handler{
		mediables: mediables,
		media:     media,
		ready:     ready,
		cfg:       cfg,
	}
}

func parseIdParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, internal_errors.BadRequest("Invalid " + name)
	}
	return id, nil
}

func (h *Handler) ownerType(r *http.Request) (domain.OwnerType, error) {
	t := domain.OwnerType(chi.URLParam(r, "type"))
	if !h.mediables.OwnerTypes().Known(t) {
		return "", internal_errors.NotFound("Unknown owner type")
	}
	return t, nil
}

// mediable resolves the {type}/{id} route params to the owner's operations.
func (h *Handler) mediable(r *http.Request) (*service.Mediable, error) {
	t, err := h.ownerType(r)
	if err != nil {
		return nil, err
	}
	id, err := parseIdParam(r, "id")
	if err != nil {
		return nil, err
	}
	return h.mediables.For(domain.Owner{Type: t, Id: id}), nil
}

func channelParam(r *http.Request) domain.ChannelName {
	if c := r.URL.Query().Get("channel"); c != "" {
		return c
	}
	return domain.DefaultChannel
}
