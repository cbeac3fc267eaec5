package core

import "errors"

// Constants for the AGCP bundle format
const (
	Magic   = "AGCP" // Magic number to identify the bundle
	Version = 2      // Bundle format version
)

// ArchiveType distinguishes between single documents and document sets
type ArchiveType byte

const (
	ArchiveFile ArchiveType = 0 // Single document bundle
	ArchiveDir  ArchiveType = 1 // Document set bundle
)

// MIME types for the containers written by this package
const (
	ZipContentType    = "application/zip"
	BundleContentType = "application/octet-stream"
)

// ErrArchiveTooLarge is returned when entries exceed the 32-bit limits of
// the ZIP format. ZIP64 is not written.
var ErrArchiveTooLarge = errors.New("archive exceeds zip format limits")

// ZipEntry is one named payload written into a ZIP container
type ZipEntry struct {
	Name string // Entry name, stored as given
	Data []byte // Payload, stored without compression
}

// Entry holds one payload for an AGCP bundle
type Entry struct {
	RelPath string // Relative path within the bundle
	Data    []byte // Uncompressed payload
}

// DecompressTask defines an extraction job
type DecompressTask struct {
	RelPath        string // Relative path within the bundle
	OriginalSize   uint64 // Original uncompressed size
	CompressedSize uint64 // Compressed size in the bundle
	Offset         int64  // Offset of the compressed frame in the bundle
	DestPath       string // Destination path for extraction
}
