package core

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"projup/pkg/checksum"
)

// ZIP record signatures and fixed sizes
const (
	localHeaderSignature   = 0x04034b50
	centralHeaderSignature = 0x02014b50
	endOfCentralSignature  = 0x06054b50

	localHeaderLen   = 30
	centralHeaderLen = 46
	endOfCentralLen  = 22

	zipVersion = 20 // 2.0: minimum for stored entries in folders
)

// localFileHeader is the 30-byte record ahead of each entry's data.
type localFileHeader struct {
	Signature        uint32
	VersionNeeded    uint16
	Flags            uint16
	Method           uint16
	ModTime          uint16
	ModDate          uint16
	CRC32            uint32
	CompressedSize   uint32
	UncompressedSize uint32
	NameLen          uint16
	ExtraLen         uint16
}

// centralDirHeader is the 46-byte index record for one entry.
type centralDirHeader struct {
	Signature         uint32
	VersionMadeBy     uint16
	VersionNeeded     uint16
	Flags             uint16
	Method            uint16
	ModTime           uint16
	ModDate           uint16
	CRC32             uint32
	CompressedSize    uint32
	UncompressedSize  uint32
	NameLen           uint16
	ExtraLen          uint16
	CommentLen        uint16
	DiskStart         uint16
	InternalAttrs     uint16
	ExternalAttrs     uint32
	LocalHeaderOffset uint32
}

// endOfCentralDir is the 22-byte trailer of the archive.
type endOfCentralDir struct {
	Signature        uint32
	DiskNumber       uint16
	CentralDirDisk   uint16
	EntriesOnDisk    uint16
	EntriesTotal     uint16
	CentralDirSize   uint32
	CentralDirOffset uint32
	CommentLen       uint16
}

// zipRecord is what the writer remembers about an entry once its local
// header has been laid down.
type zipRecord struct {
	name   []byte
	crc    uint32
	size   uint32
	offset uint32
}

// BuildArchive returns a ZIP container holding entries in the given order.
// Payloads are stored uncompressed.
func BuildArchive(entries []ZipEntry) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(archiveSize(entries))
	if _, err := WriteArchive(&buf, entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteArchive writes a ZIP container holding entries to w and returns the
// number of bytes written.
func WriteArchive(w io.Writer, entries []ZipEntry) (int64, error) {
	if len(entries) > math.MaxUint16 {
		return 0, fmt.Errorf("%w: %d entries", ErrArchiveTooLarge, len(entries))
	}

	cw := &countingWriter{w: w}
	records := make([]zipRecord, 0, len(entries))

	for _, e := range entries {
		rec, err := newZipRecord(e, cw.n)
		if err != nil {
			return cw.n, err
		}
		if err := writeLocalEntry(cw, rec, e.Data); err != nil {
			return cw.n, fmt.Errorf("write entry %s: %w", e.Name, err)
		}
		records = append(records, rec)
	}

	cdOffset := cw.n
	for _, rec := range records {
		if err := writeCentralRecord(cw, rec); err != nil {
			return cw.n, fmt.Errorf("write central record %s: %w", rec.name, err)
		}
	}
	cdSize := cw.n - cdOffset

	if cdOffset > math.MaxUint32 || cdSize > math.MaxUint32 {
		return cw.n, fmt.Errorf("%w: central directory at %d", ErrArchiveTooLarge, cdOffset)
	}
	eocd := endOfCentralDir{
		Signature:        endOfCentralSignature,
		EntriesOnDisk:    uint16(len(records)),
		EntriesTotal:     uint16(len(records)),
		CentralDirSize:   uint32(cdSize),
		CentralDirOffset: uint32(cdOffset),
	}
	if err := binary.Write(cw, binary.LittleEndian, eocd); err != nil {
		return cw.n, fmt.Errorf("write end of central directory: %w", err)
	}
	return cw.n, nil
}

func newZipRecord(e ZipEntry, offset int64) (zipRecord, error) {
	switch {
	case len(e.Name) > math.MaxUint16:
		return zipRecord{}, fmt.Errorf("%w: name of %d bytes", ErrArchiveTooLarge, len(e.Name))
	case uint64(len(e.Data)) > math.MaxUint32:
		return zipRecord{}, fmt.Errorf("%w: entry %s is %d bytes", ErrArchiveTooLarge, e.Name, len(e.Data))
	case offset > math.MaxUint32:
		return zipRecord{}, fmt.Errorf("%w: entry %s at offset %d", ErrArchiveTooLarge, e.Name, offset)
	}
	return zipRecord{
		name:   []byte(e.Name),
		crc:    checksum.Checksum(e.Data),
		size:   uint32(len(e.Data)),
		offset: uint32(offset),
	}, nil
}

func writeLocalEntry(w io.Writer, rec zipRecord, data []byte) error {
	hdr := localFileHeader{
		Signature:        localHeaderSignature,
		VersionNeeded:    zipVersion,
		CRC32:            rec.crc,
		CompressedSize:   rec.size,
		UncompressedSize: rec.size,
		NameLen:          uint16(len(rec.name)),
	}
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return fmt.Errorf("local header: %w", err)
	}
	if _, err := w.Write(rec.name); err != nil {
		return fmt.Errorf("name: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("data: %w", err)
	}
	return nil
}

func writeCentralRecord(w io.Writer, rec zipRecord) error {
	hdr := centralDirHeader{
		Signature:         centralHeaderSignature,
		VersionMadeBy:     zipVersion,
		VersionNeeded:     zipVersion,
		CRC32:             rec.crc,
		CompressedSize:    rec.size,
		UncompressedSize:  rec.size,
		NameLen:           uint16(len(rec.name)),
		LocalHeaderOffset: rec.offset,
	}
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return err
	}
	_, err := w.Write(rec.name)
	return err
}

func archiveSize(entries []ZipEntry) int {
	n := endOfCentralLen
	for _, e := range entries {
		n += localHeaderLen + centralHeaderLen + 2*len(e.Name) + len(e.Data)
	}
	return n
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
