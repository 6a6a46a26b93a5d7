// Package annostore provides an annotation store for 3D viewers.
//
// Annotations are geometric entities (points, lines, boxes, ellipsoids,
// polygons and line strings) linked to segment ids. The store keeps the
// authoritative values, hands out shared references that observe
// mutations, packs the annotations into a flat GPU-ready buffer and
// persists committed annotations as snapshots in a blob store.
//
// # Quick Start
//
//	st, _ := annostore.New()
//	ref, _ := st.Add(ctx, &annotation.Point{Point: annotation.Vec3{1, 2, 3}}, true)
//	defer ref.Dispose()
//
//	buf := st.Serialize() // packed regions, ids and pick counts
//
// # Persistence
//
// With a blob store configured, committed annotations are saved and
// restored as compressed snapshots:
//
//	st, _ := annostore.New(annostore.WithBlobStore(blobstore.NewLocalStore("./data"), "snapshots"))
//	_ = st.Save(ctx, "session-1")
//	res, _ := st.Load(ctx, "session-1") // res.Skipped lists malformed entries
//
// S3 and MinIO stores live in blobstore/s3 and blobstore/minio.
//
// # Rendering
//
// A render.Layer draws the store through a small set of collaborator
// interfaces (GPU device, pick allocator, drawer) and resolves picks back to
// annotation parts:
//
//	layer := st.NewLayer(device, picks, drawer, render.WithSegmentation(visible, true))
//	layer.Draw()
//
// For annotation sets too large to keep in memory, chunk.Manager fetches
// pre-serialized chunks per spatial cell or segment and render.ChunkedLayer
// draws them.
//
// # Concurrency
//
// The store and its layers belong to one goroutine (typically the render
// loop). Chunk fetches run in the background and are applied by
// chunk.Manager.Flush on that goroutine.
package annostore
