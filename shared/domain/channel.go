package domain

// Channel is a named slot on an owner type. Media attached through a channel
// may get preset conversions performed on them.
type Channel struct {
	Name        ChannelName
	conversions []ConversionName
}

func NewChannel(name ChannelName) *Channel {
	return &Channel{Name: name}
}

// PerformConversions appends preset conversions and returns the channel so
// registrations can be chained.
func (c *Channel) PerformConversions(names ...ConversionName) *Channel {
	c.conversions = append(c.conversions, names...)
	return c
}

func (c *Channel) HasConversions() bool {
	return len(c.conversions) > 0
}

// Conversions returns a copy of the preset conversions in registration order.
func (c *Channel) Conversions() []ConversionName {
	out := make([]ConversionName, len(c.conversions))
	copy(out, c.conversions)
	return out
}
