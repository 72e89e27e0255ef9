// Package feed reads the USGS earthquake summary feeds.
//
// The feeds are GeoJSON feature collections refreshed every minute. This
// package fetches them, checks the shape of the document and flattens every
// feature into a Record that can be pushed to a tabular store.
//
// See https://earthquake.usgs.gov/earthquakes/feed/v1.0/geojson.php.
package feed
