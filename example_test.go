package annostore_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/annostore"
	"github.com/hupe1980/annostore/annotation"
	"github.com/hupe1980/annostore/blobstore"
)

// Example_serialize demonstrates packing annotations into the render layout.
func Example_serialize() {
	ctx := context.Background()
	st, err := annostore.New()
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	_, _ = st.Add(ctx, &annotation.Point{Base: annotation.Base{ID: "p"}, Point: annotation.Vec3{1, 2, 3}}, true)
	_, _ = st.Add(ctx, &annotation.Polygon{
		Base:   annotation.Base{ID: "tri"},
		Points: []annotation.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
	}, true)

	buf := st.Serialize()
	fmt.Println("bytes:", len(buf.Data))
	fmt.Println("pick ids:", buf.TotalPickIDs)
	fmt.Println("polygon offset:", buf.TypeToOffset[annotation.TypePolygon])
	// Output:
	// bytes: 48
	// pick ids: 7
	// polygon offset: 12
}

// Example_saveLoad demonstrates snapshot persistence.
func Example_saveLoad() {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()

	st, _ := annostore.New(annostore.WithBlobStore(blobs, "snapshots"))
	ref, _ := st.Add(ctx, &annotation.Line{
		Base:   annotation.Base{ID: "l", AnnType: "axon"},
		PointB: annotation.Vec3{1, 1, 1},
	}, true)
	defer ref.Dispose()
	_, _ = st.Add(ctx, &annotation.Point{Base: annotation.Base{ID: "draft"}}, false)

	if err := st.Save(ctx, "session"); err != nil {
		log.Fatal(err)
	}

	restored, _ := annostore.New(annostore.WithBlobStore(blobs, "snapshots"))
	res, err := restored.Load(ctx, "session")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("restored:", res.Restored)
	// Output: restored: 1
}

// Example_metrics demonstrates in-memory metrics collection.
func Example_metrics() {
	ctx := context.Background()
	metrics := &annostore.BasicMetricsCollector{}
	st, _ := annostore.New(annostore.WithMetricsCollector(metrics))

	ref, _ := st.Add(ctx, &annotation.Point{Base: annotation.Base{ID: "a"}}, true)
	_, err := st.Add(ctx, &annotation.Point{Base: annotation.Base{ID: "a"}}, true)
	fmt.Println(err)
	_ = st.Delete(ctx, ref, true)

	stats := metrics.GetStats()
	fmt.Println("adds:", stats.AddCount, "errors:", stats.AddErrors, "deletes:", stats.DeleteCount)
	// Output:
	// duplicate annotation id "a"
	// adds: 2 errors: 1 deletes: 1
}
