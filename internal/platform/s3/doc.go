// Package s3 provides a small client for S3-compatible object storage.
//
// It is used as a remote backend for reconciliation records, so that several
// operators can share one view of what was applied to a cluster. Both AWS
// and self-hosted endpoints (MinIO, Ceph RGW) are supported.
package s3
