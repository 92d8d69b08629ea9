// Package minio provides a BlobStore backed by the MinIO client.
//
// It works with MinIO and other S3-compatible servers (Ceph, Garage,
// SeaweedFS) without pulling in the AWS SDK.
//
//	store, err := minio.Connect("localhost:9000", "minioadmin", "minioadmin", false, "models", "prod/")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ps := persistence.NewStore(store)
package minio
