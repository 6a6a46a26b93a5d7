// Package annotation defines the geometric annotation model and the
// per-geometry handlers used to persist, pack and pick annotations.
//
// # Geometry kinds
//
// Six kinds exist, in fixed region order: Point, Line, AxisAlignedBoundingBox,
// Ellipsoid, Polygon and LineString. Each concrete type embeds Base, which
// carries the id, description, category label, review flags, linked segment
// ids and an optional size.
//
// # Packed layout
//
// Coordinates pack as little-endian float32, 12 bytes per 3-D point:
//
//	Point                   point                    12 bytes
//	Line                    pointA, pointB           24 bytes
//	AxisAlignedBoundingBox  min, max                 24 bytes
//	Ellipsoid               center, radii            24 bytes
//	Polygon, LineString     vertices                 12 bytes per vertex
//
// Bounding boxes always pack (min, max); the corner order of the input does
// not survive a pack/unpack round trip.
//
// # Persisted form
//
// Plain is the JSON-compatible form. Segment ids persist as pairs of decimal
// strings holding the high and low 32-bit halves.
package annotation
