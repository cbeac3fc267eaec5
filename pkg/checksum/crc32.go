// Package checksum computes the CRC-32 values stored in archive headers.
package checksum

import "hash"

// Polynomial is the reflected IEEE 802.3 polynomial.
const Polynomial = 0xEDB88320

// Size of a checksum in bytes.
const Size = 4

// Checksum returns the CRC-32 of p.
func Checksum(p []byte) uint32 {
	return Update(0, p)
}

// Update returns the result of adding the bytes in p to crc.
// Pass 0 to start a new checksum.
func Update(crc uint32, p []byte) uint32 {
	crc = ^crc
	for _, b := range p {
		crc ^= uint32(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ Polynomial
			} else {
				crc >>= 1
			}
		}
	}
	return ^crc
}

type digest struct {
	crc uint32
}

// New returns a hash.Hash32 computing the same checksum as Checksum.
func New() hash.Hash32 {
	return &digest{}
}

func (d *digest) Write(p []byte) (int, error) {
	d.crc = Update(d.crc, p)
	return len(p), nil
}

func (d *digest) Sum32() uint32 { return d.crc }

func (d *digest) Sum(in []byte) []byte {
	s := d.crc
	return append(in, byte(s>>24), byte(s>>16), byte(s>>8), byte(s))
}

func (d *digest) Reset() { d.crc = 0 }

func (d *digest) Size() int { return Size }

func (d *digest) BlockSize() int { return 1 }
