// Package storage stages request audio in an object store so that
// asynchronous transcription jobs can read it.
//
// # Backends
//
//   - storage/s3: Amazon S3, and Google Cloud Storage through its
//     S3-interoperable endpoint (gs:// media URIs)
//   - storage/local: local filesystem for development and tests
//
// # Configuration
//
//	storage:
//	  provider: "s3"
//	  s3:
//	    bucket: "transcribe-staging"
//	    region: "us-east-1"
package storage
