package service

import (
	"context"

	"github.com/itchan-dev/mediable/shared/domain"
	"github.com/itchan-dev/mediable/shared/logger"
)

// AssociationStorage persists the owner/media pivot rows.
type AssociationStorage interface {
	// ListAssociations returns the owner's media in pivot insertion order.
	ListAssociations(ctx context.Context, owner domain.Owner) ([]domain.AttachedMedia, error)
	// SyncChannel upserts ids with channel and returns how many rows were inserted.
	SyncChannel(ctx context.Context, owner domain.Owner, ids []domain.MediaId, channel domain.ChannelName) (int, error)
	// DetachMedia removes the given ids; nil ids removes every association of owner.
	DetachMedia(ctx context.Context, owner domain.Owner, ids []domain.MediaId) (int, error)
	DetachChannel(ctx context.Context, owner domain.Owner, channel domain.ChannelName) (int, error)
}

type MediaFinder interface {
	FindMedia(ctx context.Context, ids []domain.MediaId) ([]domain.Media, error)
}

type UrlGenerator interface {
	Url(m domain.Media, conversion domain.ConversionName) string
}

// MediableFactory binds owners to their collaborators.
type MediableFactory struct {
	storage   AssociationStorage
	media     MediaFinder
	submitter ConversionSubmitter
	urls      UrlGenerator
	owners    OwnerTypes
}

func NewMediableFactory(
	storage AssociationStorage,
	media MediaFinder,
	submitter ConversionSubmitter,
	urls UrlGenerator,
	owners OwnerTypes,
) *MediableFactory {
	return &MediableFactory{
		storage:   storage,
		media:     media,
		submitter: submitter,
		urls:      urls,
		owners:    owners,
	}
}

func (f *MediableFactory) OwnerTypes() OwnerTypes {
	return f.owners
}

// For returns the media operations of one owner. The result is meant to be
// used by a single goroutine.
func (f *MediableFactory) For(owner domain.Owner) *Mediable {
	return &Mediable{
		owner:     owner,
		storage:   f.storage,
		media:     f.media,
		submitter: f.submitter,
		urls:      f.urls,
		registrar: f.owners.Registrar(owner.Type),
		channels:  NewChannelRegistry(),
	}
}

// Mediable gives one owner its media operations.
type Mediable struct {
	owner     domain.Owner
	storage   AssociationStorage
	media     MediaFinder
	submitter ConversionSubmitter
	urls      UrlGenerator
	registrar ChannelRegistrar
	channels  *ChannelRegistry
}

func (m *Mediable) Owner() domain.Owner {
	return m.owner
}

// Channels returns the owner's channel registry, registering it first if needed.
func (m *Mediable) Channels() *ChannelRegistry {
	m.channels.register(m.registrar)
	return m.channels
}

// GetMedia returns the media attached through channel. Every call reads
// from storage.
func (m *Mediable) GetMedia(ctx context.Context, channel domain.ChannelName) ([]domain.AttachedMedia, error) {
	all, err := m.storage.ListAssociations(ctx, m.owner)
	if err != nil {
		return nil, err
	}
	out := make([]domain.AttachedMedia, 0, len(all))
	for _, am := range all {
		if am.Channel == channel {
			out = append(out, am)
		}
	}
	return out, nil
}

// GetAllMedia returns every attached media regardless of channel.
func (m *Mediable) GetAllMedia(ctx context.Context) ([]domain.AttachedMedia, error) {
	all, err := m.storage.ListAssociations(ctx, m.owner)
	if err != nil {
		return nil, err
	}
	if all == nil {
		all = []domain.AttachedMedia{}
	}
	return all, nil
}

func (m *Mediable) HasMedia(ctx context.Context, channel domain.ChannelName) (bool, error) {
	media, err := m.GetMedia(ctx, channel)
	if err != nil {
		return false, err
	}
	return len(media) > 0, nil
}

// GetFirstMedia returns nil, nil when the channel is empty.
func (m *Mediable) GetFirstMedia(ctx context.Context, channel domain.ChannelName) (*domain.AttachedMedia, error) {
	media, err := m.GetMedia(ctx, channel)
	if err != nil {
		return nil, err
	}
	if len(media) == 0 {
		return nil, nil
	}
	first := media[0]
	return &first, nil
}

// GetFirstMediaUrl returns "" when the channel is empty. An empty conversion
// selects the original file.
func (m *Mediable) GetFirstMediaUrl(ctx context.Context, channel domain.ChannelName, conversion domain.ConversionName) (string, error) {
	first, err := m.GetFirstMedia(ctx, channel)
	if err != nil {
		return "", err
	}
	if first == nil {
		return "", nil
	}
	return m.urls.Url(first.Media, conversion), nil
}

// AttachMedia associates the referenced media with the owner through channel
// and returns the number of newly created associations. Media that is
// already attached moves to channel. Conversions requested by the caller
// and the channel presets are submitted for every referenced media.
func (m *Mediable) AttachMedia(ctx context.Context, ref domain.MediaRef, channel domain.ChannelName, conversions ...domain.ConversionName) (int, error) {
	registry := m.Channels()

	ids := ResolveIds(ref)
	if len(ids) == 0 {
		return 0, nil
	}

	ch, _ := registry.Channel(channel)
	merged := MergeConversions(conversions, ch)
	if len(merged) > 0 {
		media, err := m.media.FindMedia(ctx, ids)
		if err != nil {
			return 0, err
		}
		dispatchConversions(ctx, m.submitter, BuildConversionRequests(media, merged))
	}

	created, err := m.storage.SyncChannel(ctx, m.owner, ids, channel)
	if err != nil {
		return 0, err
	}
	logger.Log.Debug("media attached",
		"owner_type", m.owner.Type, "owner_id", m.owner.Id,
		"channel", channel, "ids", len(ids), "created", created)
	return created, nil
}

// DetachMedia removes the referenced media from the owner. A reference that
// resolves to no ids detaches nothing.
func (m *Mediable) DetachMedia(ctx context.Context, ref domain.MediaRef) (int, error) {
	ids := ResolveIds(ref)
	if len(ids) == 0 {
		return 0, nil
	}
	return m.storage.DetachMedia(ctx, m.owner, ids)
}

// DetachAllMedia removes every association of the owner.
func (m *Mediable) DetachAllMedia(ctx context.Context) (int, error) {
	return m.storage.DetachMedia(ctx, m.owner, nil)
}

// ClearMediaChannel removes the associations tagged channel only.
func (m *Mediable) ClearMediaChannel(ctx context.Context, channel domain.ChannelName) (int, error) {
	return m.storage.DetachChannel(ctx, m.owner, channel)
}
