package service

import (
	"slices"

	"github.com/itchan-dev/mediable/shared/config"
	"github.com/itchan-dev/mediable/shared/domain"
)

// ChannelRegistrar declares the channels of one owner type.
type ChannelRegistrar func(r *ChannelRegistry)

// ChannelRegistry holds the channels declared for one owner instance.
// It is not safe for concurrent mutation.
type ChannelRegistry struct {
	channels   map[domain.ChannelName]*domain.Channel
	registered bool
}

func NewChannelRegistry() *ChannelRegistry {
	return &ChannelRegistry{channels: make(map[domain.ChannelName]*domain.Channel)}
}

// AddChannel stores a new channel under name, replacing any earlier one.
func (r *ChannelRegistry) AddChannel(name domain.ChannelName) *domain.Channel {
	ch := domain.NewChannel(name)
	r.channels[name] = ch
	return ch
}

// Channel returns the channel registered under name. Absence is not an error.
func (r *ChannelRegistry) Channel(name domain.ChannelName) (*domain.Channel, bool) {
	ch, ok := r.channels[name]
	return ch, ok
}

// Names returns the registered channel names in sorted order.
func (r *ChannelRegistry) Names() []domain.ChannelName {
	names := make([]domain.ChannelName, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// register runs registrar the first time it is called; later calls do nothing.
func (r *ChannelRegistry) register(registrar ChannelRegistrar) {
	if r.registered {
		return
	}
	r.registered = true
	if registrar != nil {
		registrar(r)
	}
}

// OwnerTypes maps each owner type to its channel registrar.
type OwnerTypes map[domain.OwnerType]ChannelRegistrar

func (o OwnerTypes) Known(t domain.OwnerType) bool {
	_, ok := o[t]
	return ok
}

// Registrar returns nil for owner types that declare no channels.
func (o OwnerTypes) Registrar(t domain.OwnerType) ChannelRegistrar {
	return o[t]
}

// RegistrarFromSpecs builds a registrar from the owners section of the config.
func RegistrarFromSpecs(specs map[string]config.ChannelSpec) ChannelRegistrar {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	slices.Sort(names)

	return func(r *ChannelRegistry) {
		for _, name := range names {
			r.AddChannel(name).PerformConversions(specs[name].Conversions...)
		}
	}
}

func OwnerTypesFromConfig(owners map[string]config.OwnerTypeSpec) OwnerTypes {
	out := make(OwnerTypes, len(owners))
	for ownerType, spec := range owners {
		out[ownerType] = RegistrarFromSpecs(spec.Channels)
	}
	return out
}
