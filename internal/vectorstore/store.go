// Package vectorstore defines the persistence contract for embedded chunks
// and the failure conditions shared by its backends.
package vectorstore

import "errors"

var (
	// ErrUnavailable indicates the backing store could not be reached or
	// rejected the request. Not retried here; callers decide.
	ErrUnavailable = errors.New("vector store unavailable")

	// ErrCollectionMismatch indicates a vector whose dimensionality does not
	// match the collection, or inconsistent upsert arguments.
	ErrCollectionMismatch = errors.New("collection mismatch")
)
