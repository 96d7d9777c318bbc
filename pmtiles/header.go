package pmtiles

import "encoding/binary"

// HeaderLenBytes is the fixed size in bytes of the binary header.
const HeaderLenBytes = 127

const specVersion = 3

// Header is the fixed 127-byte PMTiles v3 header.
type Header struct {
	RootOffset          uint64
	RootLength          uint64
	MetadataOffset      uint64
	MetadataLength      uint64
	LeafDirectoryOffset uint64
	LeafDirectoryLength uint64
	TileDataOffset      uint64
	TileDataLength      uint64
	AddressedTilesCount uint64
	TileEntriesCount    uint64
	TileContentsCount   uint64
	Clustered           bool
	InternalCompression Compression
	TileCompression     Compression
	TileType            TileType
	MinZoom             uint8
	MaxZoom             uint8
	MinLonE7            int32
	MinLatE7            int32
	MaxLonE7            int32
	MaxLatE7            int32
	CenterZoom          uint8
	CenterLonE7         int32
	CenterLatE7         int32
}

// SerializeHeader encodes h into the 127-byte on-disk layout.
func SerializeHeader(h Header) []byte {
	b := make([]byte, HeaderLenBytes)
	copy(b[0:7], "PMTiles")
	b[7] = specVersion

	binary.LittleEndian.PutUint64(b[8:16], h.RootOffset)
	binary.LittleEndian.PutUint64(b[16:24], h.RootLength)
	binary.LittleEndian.PutUint64(b[24:32], h.MetadataOffset)
	binary.LittleEndian.PutUint64(b[32:40], h.MetadataLength)
	binary.LittleEndian.PutUint64(b[40:48], h.LeafDirectoryOffset)
	binary.LittleEndian.PutUint64(b[48:56], h.LeafDirectoryLength)
	binary.LittleEndian.PutUint64(b[56:64], h.TileDataOffset)
	binary.LittleEndian.PutUint64(b[64:72], h.TileDataLength)
	binary.LittleEndian.PutUint64(b[72:80], h.AddressedTilesCount)
	binary.LittleEndian.PutUint64(b[80:88], h.TileEntriesCount)
	binary.LittleEndian.PutUint64(b[88:96], h.TileContentsCount)

	if h.Clustered {
		b[96] = 1
	}
	b[97] = uint8(h.InternalCompression)
	b[98] = uint8(h.TileCompression)
	b[99] = uint8(h.TileType)
	b[100] = h.MinZoom
	b[101] = h.MaxZoom
	binary.LittleEndian.PutUint32(b[102:106], uint32(h.MinLonE7))
	binary.LittleEndian.PutUint32(b[106:110], uint32(h.MinLatE7))
	binary.LittleEndian.PutUint32(b[110:114], uint32(h.MaxLonE7))
	binary.LittleEndian.PutUint32(b[114:118], uint32(h.MaxLatE7))
	b[118] = h.CenterZoom
	binary.LittleEndian.PutUint32(b[119:123], uint32(h.CenterLonE7))
	binary.LittleEndian.PutUint32(b[123:127], uint32(h.CenterLatE7))
	return b
}

// DeserializeHeader decodes a 127-byte header. It returns ErrBadMagic or
// ErrUnsupportedVersion before touching any other field.
func DeserializeHeader(d []byte) (Header, error) {
	var h Header
	if len(d) < HeaderLenBytes {
		return h, ErrBadMagic
	}
	if string(d[0:7]) != "PMTiles" {
		return h, ErrBadMagic
	}
	if d[7] != specVersion {
		return h, ErrUnsupportedVersion
	}

	h.RootOffset = binary.LittleEndian.Uint64(d[8:16])
	h.RootLength = binary.LittleEndian.Uint64(d[16:24])
	h.MetadataOffset = binary.LittleEndian.Uint64(d[24:32])
	h.MetadataLength = binary.LittleEndian.Uint64(d[32:40])
	h.LeafDirectoryOffset = binary.LittleEndian.Uint64(d[40:48])
	h.LeafDirectoryLength = binary.LittleEndian.Uint64(d[48:56])
	h.TileDataOffset = binary.LittleEndian.Uint64(d[56:64])
	h.TileDataLength = binary.LittleEndian.Uint64(d[64:72])
	h.AddressedTilesCount = binary.LittleEndian.Uint64(d[72:80])
	h.TileEntriesCount = binary.LittleEndian.Uint64(d[80:88])
	h.TileContentsCount = binary.LittleEndian.Uint64(d[88:96])

	h.Clustered = d[96] == 1
	h.InternalCompression = Compression(d[97])
	h.TileCompression = Compression(d[98])
	h.TileType = TileType(d[99])
	h.MinZoom = d[100]
	h.MaxZoom = d[101]
	h.MinLonE7 = int32(binary.LittleEndian.Uint32(d[102:106]))
	h.MinLatE7 = int32(binary.LittleEndian.Uint32(d[106:110]))
	h.MaxLonE7 = int32(binary.LittleEndian.Uint32(d[110:114]))
	h.MaxLatE7 = int32(binary.LittleEndian.Uint32(d[114:118]))
	h.CenterZoom = d[118]
	h.CenterLonE7 = int32(binary.LittleEndian.Uint32(d[119:123]))
	h.CenterLatE7 = int32(binary.LittleEndian.Uint32(d[123:127]))

	return h, nil
}
