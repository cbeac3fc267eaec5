package core

import (
	"fmt"
	"io"
	"testing"
)

var benchSizes = []int{
	1024 * 1024,      // 1MB
	10 * 1024 * 1024, // 10MB
}

func benchContent(size int) []byte {
	content := make([]byte, size)
	for i := range content {
		content[i] = byte(i % 256)
	}
	return content
}

func BenchmarkWriteArchive(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(fmt.Sprintf("Size-%dMB", size/(1024*1024)), func(b *testing.B) {
			entries := []ZipEntry{{Name: "doc.prproj", Data: benchContent(size)}}
			b.SetBytes(int64(size))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := WriteArchive(io.Discard, entries); err != nil {
					b.Fatalf("write archive failed: %v", err)
				}
			}
		})
	}
}

func BenchmarkWriteBundle(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(fmt.Sprintf("Size-%dMB", size/(1024*1024)), func(b *testing.B) {
			entries := []Entry{{RelPath: "doc.prproj", Data: benchContent(size)}}
			b.SetBytes(int64(size))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := WriteBundle(io.Discard, ArchiveDir, "bench", entries); err != nil {
					b.Fatalf("write bundle failed: %v", err)
				}
			}
		})
	}
}

func BenchmarkReadBundle(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(fmt.Sprintf("Size-%dMB", size/(1024*1024)), func(b *testing.B) {
			data, err := BuildBundle("bench", []Entry{{RelPath: "doc.prproj", Data: benchContent(size)}})
			if err != nil {
				b.Fatalf("build bundle failed: %v", err)
			}
			b.SetBytes(int64(size))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, _, err := ReadBundle(data); err != nil {
					b.Fatalf("read bundle failed: %v", err)
				}
			}
		})
	}
}
