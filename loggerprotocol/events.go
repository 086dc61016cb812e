package loggerprotocol

import (
	"fmt"
	"slices"
)

// EventCatalog is the logger's ordered list of event names. The position of
// a name is its bit in every event mask.
type EventCatalog []string

// Mask returns the mask selecting names.
func (c EventCatalog) Mask(names []string) (uint32, error) {
	var mask uint32
	for _, name := range names {
		i := slices.Index(c, name)
		if i < 0 {
			return 0, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
		}
		mask |= 1 << i
	}
	return mask, nil
}

// Decode returns the names selected by mask, in catalog order. Bits beyond
// the catalog are ignored.
func (c EventCatalog) Decode(mask uint32) []string {
	var names []string
	for i, name := range c {
		if i >= 32 {
			break
		}
		if mask&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	return names
}
