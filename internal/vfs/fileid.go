// Package vfs holds the core data model shared by every layer above it:
// the opaque FileId identifying a file for the lifetime of its existence in
// the store, normalized VfsPath values, byte-offset text ranges, and the
// in-memory virtual file system that backs the Source DB's inputs.
package vfs

import "fmt"

// FileId is an opaque, stable identifier for a file known to the Vfs.
// Equality and hashing are by identity (the underlying uint32).
type FileId uint32

func (id FileId) String() string {
	return fmt.Sprintf("FileId(%d)", uint32(id))
}

// InFile lifts a file-local datum to a workspace-wide coordinate.
type InFile[T any] struct {
	File  FileId
	Value T
}

func In[T any](file FileId, value T) InFile[T] {
	return InFile[T]{File: file, Value: value}
}
