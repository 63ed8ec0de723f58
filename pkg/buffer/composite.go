package buffer

// Composite presents a contiguous read-mode view over an ordered sequence
// of component Buffers without copying their storage. It is built while
// assembling inbound bytes for a pending read (see pkg/stream).
type Composite struct {
	components []*Buffer
	total      int
	consumed   int
}

// NewComposite builds a Composite over the given components. It takes
// ownership of the slice; components are not retained again here — the
// caller must already own (by retain or by transfer) whatever it hands this
// Composite, as the stream's read assembly does with the inbound buffers it
// drains and the retained slices it carves from them.
func NewComposite(components ...*Buffer) *Composite {
	c := &Composite{components: components}
	for _, comp := range components {
		c.total += comp.Remaining()
	}
	return c
}

// Remaining is the sum of the unread bytes across every component.
func (c *Composite) Remaining() int { return c.total - c.consumed }

// Len is the total readable length across all components.
func (c *Composite) Len() int { return c.total }

// Release releases every component exactly once. Safe to call multiple
// times; subsequent calls are no-ops.
func (c *Composite) Release() {
	for _, comp := range c.components {
		comp.Release()
	}
	c.components = nil
}

// Bytes flattens the composite into a single contiguous slice. Used at
// message-codec boundaries where the BSON decoder needs one []byte.
func (c *Composite) Bytes() []byte {
	out := make([]byte, 0, c.total)
	for _, comp := range c.components {
		out = append(out, comp.Bytes()[comp.Position():comp.Limit()]...)
	}
	return out
}

// AppendComponent adds another retained component to the tail, used by the
// assembly loop in pkg/stream while draining pending_inbound.
func (c *Composite) AppendComponent(b *Buffer) {
	c.components = append(c.components, b)
	c.total += b.Remaining()
}
