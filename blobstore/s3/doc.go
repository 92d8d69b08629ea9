// Package s3 provides an Amazon S3 implementation of blobstore.BlobStore.
//
// # Usage
//
//	store, err := s3.NewFromDefaultConfig(ctx, "my-bucket",
//	    s3.WithPrefix("models/"),
//	    s3.WithRegion("eu-central-1"),
//	)
//
//	ps := persistence.NewStore(store)
//
// # Features
//
//   - Ranged GETs for partial reads
//   - Multipart uploads for large matrices
//   - CRC32C checksums verified by S3
//   - Configurable prefix for multi-tenant isolation
package s3
