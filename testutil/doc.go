// Package testutil provides testing utilities for annostore.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded random source and generators for annotations of
// every geometry kind.
//
// # Random Annotations
//
//	rng := testutil.NewRNG(seed)
//	a := rng.Annotation(annotation.TypePolygon)   // one polygon
//	all := rng.Annotations(1000)                  // mixed kinds
//
// # Segment Skew
//
// Linked segments follow a Zipf distribution so a few segments carry most
// annotations, as in real proofreading sessions:
//
//	segs := rng.Segments(3, 1000, 1.5)
package testutil
