package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// FeatureCollection is the top-level object of a summary feed.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Metadata *Metadata `json:"metadata,omitempty"`
	Features []Feature `json:"features"`
}

// Metadata describes the feed itself.
type Metadata struct {
	Generated int64  `json:"generated"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	API       string `json:"api"`
	Count     int    `json:"count"`
}

// Feature is a single earthquake event. Properties are kept as decoded, the
// set of keys is owned by the feed provider. Numbers are kept as json.Number
// so they are written back unchanged.
type Feature struct {
	Type       string                 `json:"type"`
	ID         string                 `json:"id"`
	Properties map[string]interface{} `json:"properties"`
	Geometry   *Geometry              `json:"geometry"`
}

// Geometry of a feature. Coordinates are [longitude, latitude, depth], any of
// them can be null.
type Geometry struct {
	Type        string     `json:"type"`
	Coordinates []*float64 `json:"coordinates"`
}

// documentSchema describes the minimum shape we need before flattening.
// Geometries are checked by Flatten so the error can name the feature.
const documentSchema = `{
	"$schema": "http://json-schema.org/draft-04/schema#",
	"type": "object",
	"required": ["features"],
	"properties": {
		"features": {
			"type": "array",
			"items": {"type": "object"}
		}
	}
}`

var schemaLoader = gojsonschema.NewStringLoader(documentSchema)

// Decode validates and decodes a feed document.
func Decode(stream []byte) (*FeatureCollection, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewStringLoader(string(stream)))
	if err != nil {
		return nil, &MalformedFeedError{Index: -1, Reason: fmt.Sprintf("document cannot be read: %v", err)}
	}
	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, item := range result.Errors() {
			issues = append(issues, item.String())
		}
		return nil, &MalformedFeedError{Index: -1, Reason: strings.Join(issues, "; ")}
	}

	fc := &FeatureCollection{}
	dec := json.NewDecoder(bytes.NewReader(stream))
	dec.UseNumber()
	if err := dec.Decode(fc); err != nil {
		return nil, &MalformedFeedError{Index: -1, Reason: err.Error()}
	}
	return fc, nil
}
