// Package api holds the JSON request and response bodies of the HTTP API.
package api

import "github.com/itchan-dev/mediable/shared/domain"

type AttachMediaRequest struct {
	MediaIds    []domain.MediaId        `json:"media_ids" validate:"required"`
	Channel     domain.ChannelName      `json:"channel"`
	Conversions []domain.ConversionName `json:"conversions" validate:"dive,required"`
}

type AttachMediaResponse struct {
	Attached int `json:"attached"`
}

// DetachMediaRequest names the media to detach. Detaching everything takes
// All or an empty request body.
type DetachMediaRequest struct {
	MediaIds []domain.MediaId `json:"media_ids" validate:"required_without=All,excluded_with=All"`
	All      bool             `json:"all"`
}

type DetachMediaResponse struct {
	Detached int `json:"detached"`
}

type AttachedMediaResponse struct {
	domain.AttachedMedia
	Urls domain.MediaUrls `json:"urls"`
}

type MediaListResponse struct {
	Owner domain.Owner            `json:"owner"`
	Media []AttachedMediaResponse `json:"media"`
}

type HasMediaResponse struct {
	Channel domain.ChannelName `json:"channel"`
	Has     bool               `json:"has"`
}

type FirstMediaUrlResponse struct {
	Channel    domain.ChannelName    `json:"channel"`
	Conversion domain.ConversionName `json:"conversion"`
	Url        string                `json:"url"`
}

type ChannelResponse struct {
	Name        domain.ChannelName      `json:"name"`
	Conversions []domain.ConversionName `json:"conversions"`
}

type ChannelsResponse struct {
	OwnerType domain.OwnerType  `json:"owner_type"`
	Channels  []ChannelResponse `json:"channels"`
}

type MediaResponse struct {
	domain.Media
	Urls domain.MediaUrls `json:"urls"`
}
