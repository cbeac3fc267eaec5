package core

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/pierrec/lz4/v4"
)

// BundleHeader describes an AGCP bundle.
type BundleHeader struct {
	Type     ArchiveType
	RootName string
	Tasks    []DecompressTask
}

// ReadBundleHeader reads the header and entry table of a bundle. Task
// offsets are absolute positions in the bundle; DestPath is left empty.
func ReadBundleHeader(r io.Reader) (BundleHeader, error) {
	cr := &countingReader{r: bufio.NewReader(r)}
	var hdr BundleHeader

	// Read magic number
	var magicBytes [4]byte
	if _, err := io.ReadFull(cr, magicBytes[:]); err != nil {
		return hdr, fmt.Errorf("read magic: %w", err)
	}
	if string(magicBytes[:]) != Magic {
		return hdr, fmt.Errorf("invalid magic number: %q", string(magicBytes[:]))
	}

	// Read version
	var versionByte uint8
	if err := binary.Read(cr, binary.BigEndian, &versionByte); err != nil {
		return hdr, fmt.Errorf("read version: %w", err)
	}
	if versionByte != Version {
		return hdr, fmt.Errorf("unsupported version: %d", versionByte)
	}

	if err := binary.Read(cr, binary.BigEndian, &hdr.Type); err != nil {
		return hdr, fmt.Errorf("read archive type: %w", err)
	}

	var rootNameLen uint16
	if err := binary.Read(cr, binary.BigEndian, &rootNameLen); err != nil {
		return hdr, fmt.Errorf("read root name length: %w", err)
	}
	rootNameBytes := make([]byte, rootNameLen)
	if _, err := io.ReadFull(cr, rootNameBytes); err != nil {
		return hdr, fmt.Errorf("read root name: %w", err)
	}
	hdr.RootName = string(rootNameBytes)

	var numEntries uint32
	if err := binary.Read(cr, binary.BigEndian, &numEntries); err != nil {
		return hdr, fmt.Errorf("read num entries: %w", err)
	}

	// Read metadata for each entry
	tasks := make([]DecompressTask, 0, min(numEntries, 4096))
	for i := 0; i < int(numEntries); i++ {
		var relPathLen uint16
		if err := binary.Read(cr, binary.BigEndian, &relPathLen); err != nil {
			return hdr, fmt.Errorf("read relPathLen %d: %w", i, err)
		}
		relPathBytes := make([]byte, relPathLen)
		if _, err := io.ReadFull(cr, relPathBytes); err != nil {
			return hdr, fmt.Errorf("read relPath %d: %w", i, err)
		}

		var originalSize, compressedSize uint64
		if err := binary.Read(cr, binary.BigEndian, &originalSize); err != nil {
			return hdr, fmt.Errorf("read originalSize %d: %w", i, err)
		}
		if err := binary.Read(cr, binary.BigEndian, &compressedSize); err != nil {
			return hdr, fmt.Errorf("read compressedSize %d: %w", i, err)
		}

		tasks = append(tasks, DecompressTask{
			RelPath:        string(relPathBytes),
			OriginalSize:   originalSize,
			CompressedSize: compressedSize,
		})
	}

	// Frames follow the table back to back
	offset := cr.n
	for i := range tasks {
		tasks[i].Offset = offset
		offset += int64(tasks[i].CompressedSize)
	}
	hdr.Tasks = tasks
	return hdr, nil
}

// ReadBundle decodes every entry of an in-memory bundle.
func ReadBundle(data []byte) (BundleHeader, []Entry, error) {
	hdr, err := ReadBundleHeader(bytes.NewReader(data))
	if err != nil {
		return hdr, nil, err
	}

	ra := bytes.NewReader(data)
	entries := make([]Entry, 0, len(hdr.Tasks))
	for _, task := range hdr.Tasks {
		sr := io.NewSectionReader(ra, task.Offset, int64(task.CompressedSize))
		var buf bytes.Buffer
		if err := decompressFrame(sr, &buf, task); err != nil {
			return hdr, nil, err
		}
		entries = append(entries, Entry{RelPath: task.RelPath, Data: buf.Bytes()})
	}
	return hdr, entries, nil
}

// ExtractBundle unpacks the bundle at input into outputDir ("." when empty)
// and returns the written paths in bundle order.
func ExtractBundle(input, outputDir string) ([]string, error) {
	f, err := os.Open(input)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	hdr, err := ReadBundleHeader(f)
	if err != nil {
		return nil, err
	}
	if outputDir == "" {
		outputDir = "."
	}

	paths := make([]string, len(hdr.Tasks))
	for i := range hdr.Tasks {
		dest, err := determineDestPath(hdr.Type, outputDir, hdr.Tasks[i].RelPath, hdr.RootName, input)
		if err != nil {
			return nil, err
		}
		hdr.Tasks[i].DestPath = dest
		paths[i] = dest
	}

	if err := decompressFiles(input, hdr.Tasks, outputDir); err != nil {
		return nil, err
	}
	return paths, nil
}

// determineDestPath determines the destination path for an extracted entry
// and refuses paths that would land outside outputDir.
func determineDestPath(archiveType ArchiveType, outputDir, relPath, rootName, inputPath string) (string, error) {
	name := relPath
	if archiveType == ArchiveFile && relPath == "" {
		// Single document bundles fall back to the root name, then to the
		// bundle's own name without its extension
		name = rootName
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(inputPath), ".agcp")
		}
	}
	if name == "" {
		return "", fmt.Errorf("entry without a name in %s", inputPath)
	}

	dest := filepath.Join(outputDir, filepath.FromSlash(name))
	rel, err := filepath.Rel(outputDir, dest)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("entry %q escapes output directory", relPath)
	}
	return dest, nil
}

// decompressFiles extracts entries concurrently
func decompressFiles(archivePath string, tasks []DecompressTask, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output dir %s: %w", outputDir, err)
	}

	// Pre-create directories for all files
	for _, task := range tasks {
		if err := os.MkdirAll(filepath.Dir(task.DestPath), 0755); err != nil {
			return fmt.Errorf("create dir for %s: %w", task.DestPath, err)
		}
	}

	// Use a semaphore to limit concurrent goroutines
	sem := make(chan struct{}, runtime.NumCPU())
	var wg sync.WaitGroup
	errCh := make(chan error, len(tasks))

	for _, task := range tasks {
		wg.Add(1)
		go func(task DecompressTask) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			f, err := os.Open(archivePath)
			if err != nil {
				errCh <- fmt.Errorf("open archive for %s: %w", task.DestPath, err)
				return
			}
			defer f.Close()

			sr := io.NewSectionReader(f, task.Offset, int64(task.CompressedSize))
			if err := decompressFileStreaming(sr, task); err != nil {
				errCh <- err
			}
		}(task)
	}
	wg.Wait()
	close(errCh)

	// Return first error if any
	if len(errCh) > 0 {
		return <-errCh
	}
	return nil
}

// decompressFileStreaming writes one entry to its destination
func decompressFileStreaming(r io.Reader, task DecompressTask) error {
	f, err := os.Create(task.DestPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", task.DestPath, err)
	}
	if err := decompressFrame(r, f, task); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// decompressFrame copies exactly OriginalSize bytes out of an LZ4 frame
func decompressFrame(r io.Reader, w io.Writer, task DecompressTask) error {
	if task.OriginalSize == 0 {
		return nil
	}
	zr := lz4.NewReader(r)
	n, err := io.CopyN(w, zr, int64(task.OriginalSize))
	if err != nil && err != io.EOF {
		return fmt.Errorf("copy %s: %w", task.RelPath, err)
	}
	if uint64(n) != task.OriginalSize {
		return fmt.Errorf("copy %s: expected %d bytes, got %d", task.RelPath, task.OriginalSize, n)
	}
	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
