package domain

type (
	MediaId   = int64
	OwnerType = string
	OwnerId   = int64

	ChannelName    = string
	ConversionName = string
)

// DefaultChannel is used when a caller does not name a channel.
const DefaultChannel ChannelName = "default"

// Owner identifies the entity media is attached to. Owners are polymorphic:
// the same OwnerId may exist for different OwnerTypes.
type Owner struct {
	Type OwnerType `json:"type"`
	Id   OwnerId   `json:"id"`
}
