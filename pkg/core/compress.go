package core

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// compressedEntry is an Entry after its payload went through LZ4.
type compressedEntry struct {
	relPath        string
	originalSize   uint64
	compressedSize uint64
	frame          []byte
}

// WriteBundle writes entries as an AGCP bundle to w. Each payload is stored
// as its own LZ4 frame so entries can be extracted independently.
func WriteBundle(w io.Writer, archiveType ArchiveType, rootName string, entries []Entry) error {
	compressed := make([]compressedEntry, 0, len(entries))
	for _, entry := range entries {
		ce, err := compressEntry(entry)
		if err != nil {
			return fmt.Errorf("compress %s: %w", entry.RelPath, err)
		}
		compressed = append(compressed, ce)
	}

	if err := writeArchiveHeader(w, archiveType, rootName, len(compressed)); err != nil {
		return err
	}
	for _, ce := range compressed {
		if err := writeEntryMetadata(w, ce.relPath, ce.originalSize, ce.compressedSize); err != nil {
			return err
		}
	}
	for _, ce := range compressed {
		if _, err := w.Write(ce.frame); err != nil {
			return fmt.Errorf("write frame %s: %w", ce.relPath, err)
		}
	}
	return nil
}

// BuildBundle returns entries as an AGCP document-set bundle.
func BuildBundle(rootName string, entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteBundle(&buf, ArchiveDir, rootName, entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeArchiveHeader writes the bundle header
func writeArchiveHeader(w io.Writer, archiveType ArchiveType, rootName string, numEntries int) error {
	if _, err := w.Write([]byte(Magic)); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	if err := binary.Write(w, binary.BigEndian, uint8(Version)); err != nil {
		return fmt.Errorf("write version: %w", err)
	}
	if err := binary.Write(w, binary.BigEndian, archiveType); err != nil {
		return fmt.Errorf("write archive type: %w", err)
	}

	rootNameBytes := []byte(rootName)
	if len(rootNameBytes) > 0xFFFF {
		return fmt.Errorf("root name too long: %d bytes", len(rootNameBytes))
	}
	if err := binary.Write(w, binary.BigEndian, uint16(len(rootNameBytes))); err != nil {
		return fmt.Errorf("write root name length: %w", err)
	}
	if _, err := w.Write(rootNameBytes); err != nil {
		return fmt.Errorf("write root name: %w", err)
	}
	if err := binary.Write(w, binary.BigEndian, uint32(numEntries)); err != nil {
		return fmt.Errorf("write number of entries: %w", err)
	}

	return nil
}

// writeEntryMetadata writes the table record for one entry
func writeEntryMetadata(w io.Writer, relPath string, originalSize, compressedSize uint64) error {
	relPathBytes := []byte(relPath)
	if len(relPathBytes) > 0xFFFF {
		return fmt.Errorf("relPath too long: %d bytes", len(relPathBytes))
	}
	if err := binary.Write(w, binary.BigEndian, uint16(len(relPathBytes))); err != nil {
		return fmt.Errorf("write relPathLen: %w", err)
	}
	if _, err := w.Write(relPathBytes); err != nil {
		return fmt.Errorf("write relPath: %w", err)
	}
	if err := binary.Write(w, binary.BigEndian, originalSize); err != nil {
		return fmt.Errorf("write originalSize: %w", err)
	}
	if err := binary.Write(w, binary.BigEndian, compressedSize); err != nil {
		return fmt.Errorf("write compressedSize: %w", err)
	}

	return nil
}

// compressEntry compresses one payload in chunks
func compressEntry(entry Entry) (compressedEntry, error) {
	ce := compressedEntry{relPath: entry.RelPath}
	if len(entry.Data) == 0 {
		return ce, nil // Empty payload, no frame written
	}

	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)

	const chunk = 32 * 1024
	for off := 0; off < len(entry.Data); off += chunk {
		end := min(off+chunk, len(entry.Data))
		if _, err := zw.Write(entry.Data[off:end]); err != nil {
			return ce, fmt.Errorf("write compressed: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return ce, fmt.Errorf("close LZ4 writer: %w", err)
	}

	ce.originalSize = uint64(len(entry.Data))
	ce.compressedSize = uint64(buf.Len())
	ce.frame = buf.Bytes()
	return ce, nil
}
