package checksum

import (
	"crypto/rand"
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksumReferenceVector(t *testing.T) {
	assert.Equal(t, uint32(0xCBF43926), Checksum([]byte("123456789")))
}

func TestChecksumEmpty(t *testing.T) {
	assert.Equal(t, uint32(0), Checksum(nil))
	assert.Equal(t, uint32(0), Checksum([]byte{}))
}

func TestChecksumMatchesIEEE(t *testing.T) {
	for _, size := range []int{1, 7, 64, 1000, 64 * 1024} {
		buf := make([]byte, size)
		_, err := rand.Read(buf)
		require.NoError(t, err)

		assert.Equal(t, crc32.ChecksumIEEE(buf), Checksum(buf), "size %d", size)
	}
}

func TestChecksumReproducible(t *testing.T) {
	data := []byte("<Project Version=\"40\">")
	first := Checksum(data)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Checksum(data))
	}
}

func TestUpdateIsIncremental(t *testing.T) {
	data := []byte("The quick brown fox jumps over the lazy dog")
	crc := Update(0, data[:10])
	crc = Update(crc, data[10:])
	assert.Equal(t, Checksum(data), crc)
	assert.Equal(t, uint32(0x414FA339), crc)
}

func TestHashInterface(t *testing.T) {
	h := New()
	_, err := h.Write([]byte("1234"))
	require.NoError(t, err)
	_, err = h.Write([]byte("56789"))
	require.NoError(t, err)

	assert.Equal(t, uint32(0xCBF43926), h.Sum32())
	assert.Equal(t, []byte{0xCB, 0xF4, 0x39, 0x26}, h.Sum(nil))
	assert.Equal(t, 4, h.Size())

	h.Reset()
	assert.Equal(t, uint32(0), h.Sum32())
}
