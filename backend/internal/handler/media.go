package handler

import (
	"errors"
	"net/http"

	"github.com/itchan-dev/mediable/backend/internal/service"
	"github.com/itchan-dev/mediable/shared/api"
	internal_errors "github.com/itchan-dev/mediable/shared/errors"
	"github.com/itchan-dev/mediable/shared/logger"
	"github.com/itchan-dev/mediable/shared/middleware"
	"github.com/itchan-dev/mediable/shared/middleware/metrics"
	"github.com/itchan-dev/mediable/shared/utils"
	"github.com/itchan-dev/mediable/shared/validation"
)

func uploadError(err error) error {
	switch {
	case errors.Is(err, validation.ErrPayloadTooLarge):
		return &internal_errors.ErrorWithStatusCode{Message: err.Error(), StatusCode: http.StatusRequestEntityTooLarge}
	case errors.Is(err, validation.ErrInvalidMimeType):
		return &internal_errors.ErrorWithStatusCode{Message: err.Error(), StatusCode: http.StatusUnsupportedMediaType}
	case errors.Is(err, validation.ErrMissingFile):
		return internal_errors.BadRequest("Multipart field \"file\" is required")
	}
	return err
}

func (h *Handler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	mediaCfg := h.cfg.Public.Media
	upload, err := validation.ParseUpload(w, r, mediaCfg.MaxUploadSizeBytes, mediaCfg.AllowedMimeTypes)
	if err != nil {
		logger.Log.Debug("upload rejected", "error", err)
		utils.WriteErrorAndStatusCode(w, uploadError(err))
		return
	}
	defer upload.File.Close()

	m, err := h.media.Upload(r.Context(), service.UploadInput{
		Data:      upload.File,
		Filename:  upload.Filename,
		Name:      upload.Name,
		MimeType:  upload.MimeType,
		SizeBytes: upload.Size,
	})
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	metrics.ObserveUpload(upload.Size)
	logger.Log.Info("media uploaded", "subject", middleware.Subject(r), "media_id", m.Id, "mime_type", m.MimeType, "size", upload.Size)

	utils.WriteJSON(w, http.StatusCreated, api.MediaResponse{Media: m, Urls: h.media.Urls(m)})
}

func (h *Handler) GetMediaRecord(w http.ResponseWriter, r *http.Request) {
	id, err := parseIdParam(r, "id")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	m, err := h.media.Get(r.Context(), id)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.MediaResponse{Media: m, Urls: h.media.Urls(m)})
}

func (h *Handler) DeleteMediaRecord(w http.ResponseWriter, r *http.Request) {
	id, err := parseIdParam(r, "id")
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	if err := h.media.Delete(r.Context(), id); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	logger.Log.Info("media deleted", "subject", middleware.Subject(r), "media_id", id)
	w.WriteHeader(http.StatusNoContent)
}
