package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/itchan-dev/mediable/shared/api"
	"github.com/itchan-dev/mediable/shared/domain"
	internal_errors "github.com/itchan-dev/mediable/shared/errors"
	"github.com/itchan-dev/mediable/shared/logger"
	"github.com/itchan-dev/mediable/shared/middleware"
	"github.com/itchan-dev/mediable/shared/utils"
)

func (h *Handler) attachedResponse(media []domain.AttachedMedia) []api.AttachedMediaResponse {
	out := make([]api.AttachedMediaResponse, 0, len(media))
	for _, am := range media {
		out = append(out, api.AttachedMediaResponse{AttachedMedia: am, Urls: h.media.Urls(am.Media)})
	}
	return out
}

// GetMedia lists the owner's media in one channel, or in every channel when all=true.
func (h *Handler) GetMedia(w http.ResponseWriter, r *http.Request) {
	m, err := h.mediable(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	var media []domain.AttachedMedia
	if r.URL.Query().Get("all") == "true" {
		media, err = m.GetAllMedia(r.Context())
	} else {
		media, err = m.GetMedia(r.Context(), channelParam(r))
	}
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, api.MediaListResponse{Owner: m.Owner(), Media: h.attachedResponse(media)})
}

func (h *Handler) HasMedia(w http.ResponseWriter, r *http.Request) {
	m, err := h.mediable(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	channel := channelParam(r)
	has, err := m.HasMedia(r.Context(), channel)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.HasMediaResponse{Channel: channel, Has: has})
}

func (h *Handler) GetFirstMedia(w http.ResponseWriter, r *http.Request) {
	m, err := h.mediable(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	first, err := m.GetFirstMedia(r.Context(), channelParam(r))
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	if first == nil {
		utils.WriteErrorAndStatusCode(w, internal_errors.NotFound("Channel is empty"))
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.AttachedMediaResponse{AttachedMedia: *first, Urls: h.media.Urls(first.Media)})
}

// GetFirstMediaUrl answers with an empty url when the channel is empty.
func (h *Handler) GetFirstMediaUrl(w http.ResponseWriter, r *http.Request) {
	m, err := h.mediable(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	channel := channelParam(r)
	conversion := r.URL.Query().Get("conversion")
	url, err := m.GetFirstMediaUrl(r.Context(), channel, conversion)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, api.FirstMediaUrlResponse{Channel: channel, Conversion: conversion, Url: url})
}

func (h *Handler) AttachMedia(w http.ResponseWriter, r *http.Request) {
	m, err := h.mediable(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	var body api.AttachMediaRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	channel := body.Channel
	if channel == "" {
		channel = domain.DefaultChannel
	}

	attached, err := m.AttachMedia(r.Context(), domain.MediaRefIds(body.MediaIds...), channel, body.Conversions...)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	logger.Log.Info("media attached", "subject", middleware.Subject(r), "owner_type", m.Owner().Type, "owner_id", m.Owner().Id, "channel", channel, "attached", attached)
	utils.WriteJSON(w, http.StatusCreated, api.AttachMediaResponse{Attached: attached})
}

// DetachMedia detaches the listed media, or all of the owner's media when
// the body is empty or sets "all".
func (h *Handler) DetachMedia(w http.ResponseWriter, r *http.Request) {
	m, err := h.mediable(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	var body api.DetachMediaRequest
	if err := utils.DecodeValidateOptional(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	var detached int
	if body.All || body.MediaIds == nil {
		detached, err = m.DetachAllMedia(r.Context())
	} else {
		detached, err = m.DetachMedia(r.Context(), domain.MediaRefIds(body.MediaIds...))
	}
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	logger.Log.Info("media detached", "subject", middleware.Subject(r), "owner_type", m.Owner().Type, "owner_id", m.Owner().Id, "all", body.All || body.MediaIds == nil, "detached", detached)
	utils.WriteJSON(w, http.StatusOK, api.DetachMediaResponse{Detached: detached})
}

func (h *Handler) ClearMediaChannel(w http.ResponseWriter, r *http.Request) {
	m, err := h.mediable(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	channel := chi.URLParam(r, "channel")
	detached, err := m.ClearMediaChannel(r.Context(), channel)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	logger.Log.Info("media channel cleared", "subject", middleware.Subject(r), "owner_type", m.Owner().Type, "owner_id", m.Owner().Id, "channel", channel, "detached", detached)
	utils.WriteJSON(w, http.StatusOK, api.DetachMediaResponse{Detached: detached})
}

// GetChannels lists the channels an owner type declares.
func (h *Handler) GetChannels(w http.ResponseWriter, r *http.Request) {
	t, err := h.ownerType(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	registry := h.mediables.For(domain.Owner{Type: t}).Channels()
	resp := api.ChannelsResponse{OwnerType: t, Channels: []api.ChannelResponse{}}
	for _, name := range registry.Names() {
		ch, _ := registry.Channel(name)
		resp.Channels = append(resp.Channels, api.ChannelResponse{Name: name, Conversions: ch.Conversions()})
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}
