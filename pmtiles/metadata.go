package pmtiles

import "encoding/json"

// SerializeMetadata marshals an arbitrary JSON metadata document and
// compresses it with c. The core treats the document as opaque bytes;
// typed access (name, description, vector_layers, tilestats, ...)
// belongs to callers.
func SerializeMetadata(metadata map[string]interface{}, c Compression) ([]byte, error) {
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}
	return compress(raw, c)
}

// DeserializeMetadata decompresses and unmarshals a metadata document.
func DeserializeMetadata(data []byte, c Compression) (map[string]interface{}, error) {
	raw, err := decompressBytes(data, c)
	if err != nil {
		return nil, err
	}
	var metadata map[string]interface{}
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return nil, err
	}
	return metadata, nil
}
