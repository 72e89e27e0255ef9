package feed

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	blob, err := ioutil.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("error loading fixture %s: %v", name, err)
	}
	return blob
}

func TestClientFetchHTTP(t *testing.T) {
	blob := fixture(t, "all_hour.geojson")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/summary/all_hour.geojson", r.URL.Path)
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write(blob)
	}))
	defer server.Close()

	c := New(server.Client(), SetUserAgent("test-agent"))
	doc, err := c.Fetch(context.Background(), server.URL+"/summary/all_hour.geojson")
	require.NoError(t, err)

	assert.Equal(t, blob, doc.Raw)
	assert.Len(t, doc.Collection.Features, 2)
	assert.Equal(t, "USGS All Earthquakes, Past Hour", doc.Collection.Metadata.Title)
}

func TestClientFetchStatusErrors(t *testing.T) {
	tests := map[string]struct {
		retries      uint64
		status       int
		wantAttempts int32
	}{
		"Server error without retries": {retries: 0, status: http.StatusBadGateway, wantAttempts: 1},
		"Server error with retries":    {retries: 2, status: http.StatusServiceUnavailable, wantAttempts: 3},
		"Client error is not retried":  {retries: 2, status: http.StatusNotFound, wantAttempts: 1},
	}
	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var attempts int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&attempts, 1)
				w.WriteHeader(tc.status)
				fmt.Fprint(w, `{"error": "nope"}`)
			}))
			defer server.Close()

			c := New(server.Client(), SetRetries(tc.retries))
			doc, err := c.Fetch(context.Background(), server.URL)
			assert.Nil(t, doc)

			ferr, ok := err.(*FetchError)
			require.True(t, ok, "unexpected error type %T", err)
			assert.Equal(t, tc.status, ferr.StatusCode)
			assert.Equal(t, server.URL, ferr.URL)
			assert.Equal(t, tc.wantAttempts, atomic.LoadInt32(&attempts))
		})
	}
}

func TestClientFetchNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	_, err := New(nil).Fetch(context.Background(), addr)
	ferr, ok := err.(*FetchError)
	require.True(t, ok, "unexpected error type %T", err)
	assert.Error(t, ferr.Err)
	assert.Zero(t, ferr.StatusCode)
}

func TestClientFetchMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"features": "none"}`)
	}))
	defer server.Close()

	_, err := New(server.Client()).Fetch(context.Background(), server.URL)
	assert.IsType(t, &MalformedFeedError{}, err)
}

func TestClientFetchFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/feeds/all_hour.geojson", fixture(t, "all_hour.geojson"), 0644))
	c := New(nil, SetFs(fs))

	for _, location := range []string{"/feeds/all_hour.geojson", "file:///feeds/all_hour.geojson"} {
		doc, err := c.Fetch(context.Background(), location)
		require.NoError(t, err, location)
		assert.Len(t, doc.Collection.Features, 2)
		assert.Equal(t, location, doc.Location)
	}

	_, err := c.Fetch(context.Background(), "/feeds/missing.geojson")
	assert.IsType(t, &FetchError{}, err)
}

func TestClientFetchUnsupportedScheme(t *testing.T) {
	_, err := New(nil).Fetch(context.Background(), "ftp://example.com/all_day.geojson")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported scheme "ftp"`)
}

func TestDecode(t *testing.T) {
	tests := map[string]struct {
		doc       string
		wantErr   bool
		wantCount int
	}{
		"Fixture":               {doc: string(fixture(t, "all_hour.geojson")), wantCount: 2},
		"Empty feed":            {doc: string(fixture(t, "empty.geojson")), wantCount: 0},
		"Invalid JSON":          {doc: `{true: false}`, wantErr: true},
		"Missing features":      {doc: `{"type": "FeatureCollection"}`, wantErr: true},
		"Features not an array": {doc: `{"features": {}}`, wantErr: true},
		"Feature not an object": {doc: `{"features": [1, 2]}`, wantErr: true},
	}
	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			fc, err := Decode([]byte(tc.doc))
			if tc.wantErr {
				assert.Nil(t, fc)
				merr, ok := err.(*MalformedFeedError)
				require.True(t, ok, "unexpected error type %T", err)
				assert.Equal(t, -1, merr.Index)
				return
			}
			require.NoError(t, err)
			assert.Len(t, fc.Features, tc.wantCount)
		})
	}
}
