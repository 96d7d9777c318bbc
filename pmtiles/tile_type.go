package pmtiles

// TileType is the format of individual tile contents in the archive.
type TileType uint8

const (
	UnknownTileType TileType = 0
	Mvt             TileType = 1
	Png             TileType = 2
	Jpeg            TileType = 3
	Webp            TileType = 4
	Avif            TileType = 5
)

func (t TileType) String() string {
	switch t {
	case Mvt:
		return "MVT"
	case Png:
		return "PNG"
	case Jpeg:
		return "JPEG"
	case Webp:
		return "WebP"
	case Avif:
		return "AVIF"
	default:
		return "unknown"
	}
}

func (t TileType) ContentType() (string, bool) {
	switch t {
	case Mvt:
		return "application/x-protobuf", true
	case Png:
		return "image/png", true
	case Jpeg:
		return "image/jpeg", true
	case Webp:
		return "image/webp", true
	case Avif:
		return "image/avif", true
	default:
		return "", false
	}
}
