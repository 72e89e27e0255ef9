package ckan_test

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JiscSD/earthquake-datastore-updater/ckan"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const apiKey = "secret-api-key"

type wanted struct {
	method  string
	path    string
	query   string
	payload string
}

// newServer returns a CKAN double that checks the request received against
// want and responds with the status and payload given.
func newServer(t *testing.T, want wanted, respStatus int, respPayload string) (*httptest.Server, *int) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, want.method, r.Method)
		assert.Equal(t, want.path, r.URL.Path)
		assert.Equal(t, want.query, r.URL.RawQuery)
		assert.Equal(t, apiKey, r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		payload, err := ioutil.ReadAll(r.Body)
		assert.NoError(t, err)
		r.Body.Close()
		if want.payload != "" {
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.JSONEq(t, want.payload, string(payload))
		} else {
			assert.Empty(t, payload)
		}

		w.WriteHeader(respStatus)
		fmt.Fprint(w, respPayload)
	}))
	return server, &calls
}

func newClient(t *testing.T, server *httptest.Server) *ckan.Client {
	// The trailing slash is removed by the client.
	c, err := ckan.New(server.Client(), server.URL+"/", apiKey)
	require.NoError(t, err)
	return c
}

func TestCreateDataset(t *testing.T) {
	server, calls := newServer(t, wanted{
		method:  "POST",
		path:    "/api/action/package_create",
		payload: `{"name": "ngds-earthquakes-data", "title": "NGDS Earthquakes Data", "notes": "Earthquake data"}`,
	}, http.StatusOK, `{"success": true, "result": {"id": "6d3e4bd6-6c9e-4d47-b8a8-ea5f0f1f5a49", "name": "ngds-earthquakes-data"}}`)
	defer server.Close()

	id, err := newClient(t, server).CreateDataset(context.Background(), &ckan.Dataset{
		Name:  "ngds-earthquakes-data",
		Title: "NGDS Earthquakes Data",
		Notes: "Earthquake data",
	})

	require.NoError(t, err)
	assert.Equal(t, "6d3e4bd6-6c9e-4d47-b8a8-ea5f0f1f5a49", id)
	assert.Equal(t, 1, *calls)
}

func TestCreateDatasetError(t *testing.T) {
	server, _ := newServer(t, wanted{
		method:  "POST",
		path:    "/api/action/package_create",
		payload: `{"name": "", "title": "", "notes": ""}`,
	}, http.StatusInternalServerError, `{"error":"..."}`)
	defer server.Close()

	id, err := newClient(t, server).CreateDataset(context.Background(), &ckan.Dataset{})

	assert.Empty(t, id)
	cerr, ok := err.(*ckan.CatalogError)
	require.True(t, ok, "unexpected error type %T", err)
	assert.Equal(t, http.StatusInternalServerError, cerr.StatusCode)
	assert.Equal(t, `{"error":"..."}`, string(cerr.Body))
	assert.Equal(t, "package_create", cerr.Action)
}

func TestCreateDatasetMissingID(t *testing.T) {
	server, _ := newServer(t, wanted{
		method:  "POST",
		path:    "/api/action/package_create",
		payload: `{"name": "a", "title": "", "notes": ""}`,
	}, http.StatusOK, `{"success": true, "result": {}}`)
	defer server.Close()

	_, err := newClient(t, server).CreateDataset(context.Background(), &ckan.Dataset{Name: "a"})
	assert.EqualError(t, err, "package_create did not return a dataset id")
}

func TestCreateTable(t *testing.T) {
	server, _ := newServer(t, wanted{
		method: "POST",
		path:   "/api/action/datastore_create",
		payload: `{
			"resource": {"package_id": "dataset-1", "name": "Earthquake data", "format": "csv"},
			"records": [{"code": "abc", "mag": 4.5}],
			"fields": [{"id": "mag", "type": "float"}, {"id": "code", "type": "text"}],
			"primary_key": ["code"]
		}`,
	}, http.StatusOK, `{"success": true, "result": {"resource_id": "resource-1", "method": "insert"}}`)
	defer server.Close()

	id, err := newClient(t, server).CreateTable(context.Background(), &ckan.DatastoreCreateRequest{
		Resource: ckan.Resource{PackageID: "dataset-1", Name: "Earthquake data", Format: "csv"},
		Records:  []ckan.Record{{"code": "abc", "mag": 4.5}},
		Fields:   []ckan.Field{{ID: "mag", Type: "float"}, {ID: "code", Type: "text"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "resource-1", id)
}

func TestCreateTableError(t *testing.T) {
	server, _ := newServer(t, wanted{
		method: "POST",
		path:   "/api/action/datastore_create",
		payload: `{
			"resource": {"package_id": "dataset-1", "name": "", "format": ""},
			"records": [],
			"fields": null,
			"primary_key": ["id"]
		}`,
	}, http.StatusConflict, `{"success": false, "error": {"__type": "Validation Error"}}`)
	defer server.Close()

	_, err := newClient(t, server).CreateTable(context.Background(), &ckan.DatastoreCreateRequest{
		Resource:   ckan.Resource{PackageID: "dataset-1"},
		PrimaryKey: []string{"id"},
	})

	cerr, ok := err.(*ckan.CatalogError)
	require.True(t, ok, "unexpected error type %T", err)
	assert.Equal(t, http.StatusConflict, cerr.StatusCode)
}

func TestUpsertRecords(t *testing.T) {
	server, calls := newServer(t, wanted{
		method:  "POST",
		path:    "/api/action/datastore_upsert",
		payload: `{"resource_id": "resource-1", "method": "upsert", "records": [{"code": "a"}, {"code": "b"}]}`,
	}, http.StatusOK, `{"success": true, "result": {"method": "upsert"}}`)
	defer server.Close()

	err := newClient(t, server).UpsertRecords(context.Background(), "resource-1", []ckan.Record{{"code": "a"}, {"code": "b"}})

	require.NoError(t, err)
	assert.Equal(t, 1, *calls)
}

func TestUpsertRecordsEmpty(t *testing.T) {
	server, calls := newServer(t, wanted{}, http.StatusOK, "")
	defer server.Close()

	err := newClient(t, server).UpsertRecords(context.Background(), "resource-1", nil)

	require.NoError(t, err)
	assert.Equal(t, 0, *calls)
}

func TestUpsertRecordsError(t *testing.T) {
	server, _ := newServer(t, wanted{
		method:  "POST",
		path:    "/api/action/datastore_upsert",
		payload: `{"resource_id": "resource-1", "method": "upsert", "records": [{"code": "a"}]}`,
	}, http.StatusForbidden, `{"success": false, "error": {"message": "Access denied"}}`)
	defer server.Close()

	err := newClient(t, server).UpsertRecords(context.Background(), "resource-1", []ckan.Record{{"code": "a"}})

	assert.EqualError(t, err, `catalog action datastore_upsert failed with status 403: {"success": false, "error": {"message": "Access denied"}}`)
}

func TestSearchTotal(t *testing.T) {
	server, _ := newServer(t, wanted{
		method: "GET",
		path:   "/api/action/datastore_search",
		query:  "limit=0&resource_id=resource-1",
	}, http.StatusOK, `{"success": true, "result": {"resource_id": "resource-1", "records": [], "total": 1234}}`)
	defer server.Close()

	total, err := newClient(t, server).SearchTotal(context.Background(), "resource-1")

	require.NoError(t, err)
	assert.Equal(t, 1234, total)
}

func TestBaseURLWithPath(t *testing.T) {
	server, _ := newServer(t, wanted{
		method:  "POST",
		path:    "/catalog/api/action/package_create",
		payload: `{"name": "a", "title": "", "notes": ""}`,
	}, http.StatusOK, `{"success": true, "result": {"id": "1"}}`)
	defer server.Close()

	c, err := ckan.New(server.Client(), server.URL+"/catalog/", apiKey)
	require.NoError(t, err)

	id, err := c.CreateDataset(context.Background(), &ckan.Dataset{Name: "a"})
	require.NoError(t, err)
	assert.Equal(t, "1", id)
}

func TestNewInvalidURL(t *testing.T) {
	_, err := ckan.New(nil, "http://[::1", apiKey)
	assert.Error(t, err)
}
