package filter

import (
	"fmt"
	"hash/crc32"
	"math"

	"github.com/FastFilter/xorfilter"
	"github.com/pkg/errors"
	"github.com/prometheus/prometheus/tsdb/encoding"
)

const (
	magicNumber = uint32(0xB10CF117)

	formatV1 = byte(1)

	// flagEmpty marks a filter built without keys.
	flagEmpty = byte(1 << 0)

	// magic + version + flags + seed
	headerLen = 4 + 1 + 1 + 8
	crcLen    = 4
)

var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// Bytes returns the encoded form of f:
//
//	magic (4, BE) | version (1) | flags (1) | seed (8, BE)
//	block length (uvarint) | fingerprints (uvarint length + bytes)
//	crc32 castagnoli of all preceding bytes (4, BE)
//
// The distinct count estimate is not encoded.
func (f *Xor8Filter) Bytes() []byte {
	return f.AppendBytes(nil)
}

// AppendBytes appends the encoded form of f to dst. See [Xor8Filter.Bytes].
func (f *Xor8Filter) AppendBytes(dst []byte) []byte {
	start := len(dst)
	enc := encoding.Encbuf{B: dst}

	enc.PutBE32(magicNumber)
	enc.PutByte(formatV1)

	if f.IsEmpty() {
		enc.PutByte(flagEmpty)
		enc.PutBE64(0)
		enc.PutUvarint(0)
		enc.PutUvarintBytes(nil)
	} else {
		enc.PutByte(0)
		enc.PutBE64(f.xor.Seed)
		enc.PutUvarint32(f.xor.BlockLength)
		enc.PutUvarintBytes(f.xor.Fingerprints)
	}

	enc.PutBE32(crc32.Checksum(enc.B[start:], castagnoliTable))
	return enc.Get()
}

// FromBytes decodes a filter from the start of data and returns it together
// with the number of bytes it occupied. Errors wrap [ErrCorrupt].
//
// The returned filter does not reference data.
func FromBytes(data []byte) (*Xor8Filter, int, error) {
	f, n, err := decode(data)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return f, n, nil
}

func decode(data []byte) (*Xor8Filter, int, error) {
	if len(data) < headerLen+crcLen {
		return nil, 0, errors.Errorf("filter too short: %d bytes", len(data))
	}

	dec := encoding.Decbuf{B: data}
	if number := dec.Be32(); number != magicNumber {
		return nil, 0, errors.Errorf("invalid magic number. expected %x, got %x", magicNumber, number)
	}
	if version := dec.Byte(); version != formatV1 {
		return nil, 0, errors.Errorf("invalid version. expected %d, got %d", formatV1, version)
	}
	flags := dec.Byte()
	if flags&^flagEmpty != 0 {
		return nil, 0, errors.Errorf("unknown flags %08b", flags)
	}
	seed := dec.Be64()
	blockLength := dec.Uvarint64()
	fingerprints := dec.UvarintBytes()
	if err := dec.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "decoding filter")
	}

	n := len(data) - dec.Len()
	expectCRC := crc32.Checksum(data[:n], castagnoliTable)
	actualCRC := dec.Be32()
	if err := dec.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "decoding checksum")
	}
	if expectCRC != actualCRC {
		return nil, 0, errors.Errorf("checksum mismatch. expected %x, got %x", expectCRC, actualCRC)
	}
	n += crcLen

	if flags&flagEmpty != 0 {
		if blockLength != 0 || len(fingerprints) != 0 {
			return nil, 0, errors.New("empty filter with fingerprints")
		}
		return &Xor8Filter{}, n, nil
	}

	if blockLength == 0 || blockLength > math.MaxUint32 || uint64(len(fingerprints)) != 3*blockLength {
		return nil, 0, errors.Errorf("invalid block length %d for %d fingerprints", blockLength, len(fingerprints))
	}

	return &Xor8Filter{
		xor: &xorfilter.Xor8{
			Seed:         seed,
			BlockLength:  uint32(blockLength),
			Fingerprints: append([]uint8(nil), fingerprints...),
		},
	}, n, nil
}
