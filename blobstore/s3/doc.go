// Package s3 provides an Amazon S3 implementation of blobstore.BlobStore.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("annotations/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
// # Features
//
//   - Range reads for chunk fetches
//   - CRC32C-checked single-part puts for small blobs
//   - Multipart uploads for large snapshots
//   - Automatic pagination for listing
package s3
