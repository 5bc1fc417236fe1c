package session

import (
	"github.com/woozymasta/quickmap/internal/document"
	"github.com/woozymasta/quickmap/internal/sharecodec"
)

// Op names the kind of change an Edit describes.
type Op string

const (
	OpAdd      Op = "add"
	OpRemove   Op = "remove"
	OpLabel    Op = "label"
	OpData     Op = "data"
	OpStyle    Op = "style"
	OpRadius   Op = "radius"
	OpGeometry Op = "geometry"
	OpBasemap  Op = "basemap"
)

// Edit describes one applied change. Feature is the state after the change
// (before it, for OpRemove). Basemap is set for OpBasemap only.
type Edit struct {
	Feature document.Feature   `json:"feature,omitzero"`
	ID      FeatureID          `json:"id,omitempty"`
	Op      Op                 `json:"op"`
	Basemap sharecodec.Basemap `json:"basemap,omitempty"`
}

// IsUpdate reports whether the edit changes an existing feature in place.
func (e Edit) IsUpdate() bool {
	switch e.Op {
	case OpLabel, OpData, OpStyle, OpRadius, OpGeometry:
		return true
	}
	return false
}
