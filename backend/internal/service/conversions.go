package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/itchan-dev/mediable/shared/domain"
	"github.com/itchan-dev/mediable/shared/logger"
)

// ConversionSubmitter hands conversion work to an asynchronous executor.
// Submit must not wait for the work to run.
type ConversionSubmitter interface {
	Submit(ctx context.Context, req domain.ConversionRequest) error
}

// MergeConversions returns the caller's conversions followed by the channel
// presets. Duplicates are kept.
func MergeConversions(caller []domain.ConversionName, ch *domain.Channel) []domain.ConversionName {
	merged := make([]domain.ConversionName, 0, len(caller))
	merged = append(merged, caller...)
	if ch != nil && ch.HasConversions() {
		merged = append(merged, ch.Conversions()...)
	}
	return merged
}

// BuildConversionRequests creates one request per media record, each with
// its own copy of conversions.
func BuildConversionRequests(media []domain.Media, conversions []domain.ConversionName) []domain.ConversionRequest {
	reqs := make([]domain.ConversionRequest, 0, len(media))
	for _, m := range media {
		names := make([]domain.ConversionName, len(conversions))
		copy(names, conversions)
		reqs = append(reqs, domain.ConversionRequest{
			Id:          uuid.NewString(),
			Media:       m,
			Conversions: names,
		})
	}
	return reqs
}

func dispatchConversions(ctx context.Context, submitter ConversionSubmitter, reqs []domain.ConversionRequest) {
	log := logger.Component("conversions")
	for _, req := range reqs {
		if err := submitter.Submit(ctx, req); err != nil {
			log.Warn("failed to submit conversion request",
				"request_id", req.Id, "media_id", req.Media.Id, "conversions", req.Conversions, "error", err)
			continue
		}
		log.Debug("conversion request submitted", "request_id", req.Id, "media_id", req.Media.Id)
	}
}
