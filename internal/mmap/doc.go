// Package mmap provides read-only memory-mapped access to blob files.
//
// LocalStore maps snapshot and chunk blobs so repeated range reads of the
// same chunk file do not copy through kernel buffers.
//
// Unix platforms use mmap(2) with madvise(2) for access hints. Windows uses
// CreateFileMapping/MapViewOfFile and ignores hints.
//
// A Mapping is safe for concurrent reads. Close is idempotent; callers must
// not use slices returned by Bytes after Close.
package mmap
