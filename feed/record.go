package feed

import (
	"encoding/json"
	"time"

	"github.com/spf13/cast"
)

// AddedLayout is the ISO 8601 layout used for the added timestamp.
const AddedLayout = "2006-01-02T15:04:05.000000Z07:00"

// Names of the fields injected into every record.
const (
	FieldLongitude = "longitude"
	FieldLatitude  = "latitude"
	FieldAdded     = "added"
)

// Record is the flat version of a feature: its properties plus the position
// of the event and the time it was flattened. A nil coordinate is stored as
// null.
type Record struct {
	Properties map[string]interface{}
	Longitude  *float64
	Latitude   *float64
	Added      time.Time
}

// Code is the identifier of the event assigned by the contributing network.
func (r Record) Code() string {
	return cast.ToString(r.property("code"))
}

func (r Record) Magnitude() float64 {
	return cast.ToFloat64(r.property("mag"))
}

func (r Record) Place() string {
	return cast.ToString(r.property("place"))
}

// Time of the event. The feed reports milliseconds since the epoch.
func (r Record) Time() time.Time {
	ms := cast.ToInt64(r.property("time"))
	return time.Unix(0, ms*int64(time.Millisecond)).UTC()
}

// property returns the named property with json.Number unwrapped, cast does
// not know about it.
func (r Record) property(name string) interface{} {
	v := r.Properties[name]
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// Fields returns the record as a single mapping, which is the shape expected
// by the DataStore API.
func (r Record) Fields() map[string]interface{} {
	m := make(map[string]interface{}, len(r.Properties)+3)
	for k, v := range r.Properties {
		m[k] = v
	}
	m[FieldLongitude] = coordinate(r.Longitude)
	m[FieldLatitude] = coordinate(r.Latitude)
	m[FieldAdded] = r.Added.Format(AddedLayout)
	return m
}

func coordinate(c *float64) interface{} {
	if c == nil {
		return nil
	}
	return *c
}

func copyCoordinate(c *float64) *float64 {
	if c == nil {
		return nil
	}
	v := *c
	return &v
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Fields())
}

// Flatten turns every feature of the collection into a Record, in the same
// order. All records share the added timestamp given.
func Flatten(fc *FeatureCollection, now time.Time) ([]Record, error) {
	if fc == nil {
		return nil, &MalformedFeedError{Index: -1, Reason: "document is empty"}
	}
	added := now.UTC()
	records := make([]Record, 0, len(fc.Features))
	for i, feature := range fc.Features {
		if feature.Properties == nil {
			return nil, &MalformedFeedError{Index: i, Reason: "properties are missing"}
		}
		if feature.Geometry == nil {
			return nil, &MalformedFeedError{Index: i, Reason: "geometry is missing"}
		}
		if len(feature.Geometry.Coordinates) < 2 {
			return nil, &MalformedFeedError{Index: i, Reason: "geometry has less than two coordinates"}
		}
		props := make(map[string]interface{}, len(feature.Properties))
		for k, v := range feature.Properties {
			props[k] = v
		}
		records = append(records, Record{
			Properties: props,
			Longitude:  copyCoordinate(feature.Geometry.Coordinates[0]),
			Latitude:   copyCoordinate(feature.Geometry.Coordinates[1]),
			Added:      added,
		})
	}
	return records, nil
}
