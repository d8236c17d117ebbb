// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client so the match command can read candidate
// batches from, and write partitions to, AWS S3 or a self-hosted MinIO.
//
// # Client Interface
//
// The Client interface abstracts the underlying storage provider, making it easier
// to mock storage interactions for unit testing (as seen in core/storage/mocks).
//
// # Operations
//
//   - ReadObject: reads a candidate batch, bounded by Config.MaxObjectBytes.
//   - WriteJSON: uploads a result document.
//   - ListObjectNames: lists batch objects under a prefix.
//
// # Usage
//
//	client, err := storage.NewClient(config)
//	data, err := storage.ReadObject(ctx, client, cfg.Bucket, "incoming/prices.json", cfg.MaxObjectBytes())
package storage
