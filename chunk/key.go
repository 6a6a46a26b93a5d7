// Package chunk delivers externally produced annotation buffers for the
// multiscale render path.
//
// A chunk is a serialize.Serialized covering one spatial cell or one
// segment. Chunks are fetched off the render loop, queued, and applied by
// Manager.Flush on the render loop, which drops arrivals whose request has
// been superseded.
package chunk

import (
	"strconv"

	"github.com/hupe1980/annostore/annotation"
)

// Key identifies a chunk. Keys are also blob names below BlobPrefix.
type Key string

// SegmentKey returns the key of the chunk holding the annotations of a
// canonical segment.
func SegmentKey(id annotation.SegmentID) Key {
	return Key("segment/" + strconv.FormatUint(uint64(id), 10))
}

// SpatialKey returns the key of the chunk of grid cell (x, y, z) at scale
// level lod.
func SpatialKey(lod, x, y, z int) Key {
	return Key("spatial/" + strconv.Itoa(lod) + "/" + strconv.Itoa(x) + "_" + strconv.Itoa(y) + "_" + strconv.Itoa(z))
}
