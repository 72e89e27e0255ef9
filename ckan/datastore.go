package ckan

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gorilla/schema"
	"github.com/pkg/errors"
)

// Record is a row of a DataStore table.
type Record map[string]interface{}

// Field declares the type of a column of a DataStore table, e.g. "text",
// "integer", "bigint" or "float".
type Field struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Resource describes the resource created together with a DataStore table.
type Resource struct {
	PackageID string `json:"package_id"`
	Name      string `json:"name"`
	Format    string `json:"format"`
}

// DefaultPrimaryKey is used when a DatastoreCreateRequest does not list one.
var DefaultPrimaryKey = []string{"code"}

// DatastoreCreateRequest is the payload of datastore_create. The records are
// inserted in the same request.
type DatastoreCreateRequest struct {
	Resource   Resource `json:"resource"`
	Records    []Record `json:"records"`
	Fields     []Field  `json:"fields"`
	PrimaryKey []string `json:"primary_key"`
}

type datastoreCreateResult struct {
	ResourceID string `json:"resource_id"`
}

// CreateTable creates a resource in the dataset given with a DataStore table
// and returns the identifier of the resource.
func (c *Client) CreateTable(ctx context.Context, r *DatastoreCreateRequest) (string, error) {
	payload := *r
	if len(payload.PrimaryKey) == 0 {
		payload.PrimaryKey = DefaultPrimaryKey
	}
	if payload.Records == nil {
		payload.Records = []Record{}
	}
	result := &datastoreCreateResult{}
	if err := c.post(ctx, "datastore_create", &payload, result); err != nil {
		return "", err
	}
	if result.ResourceID == "" {
		return "", errors.New("datastore_create did not return a resource id")
	}
	return result.ResourceID, nil
}

const methodUpsert = "upsert"

type datastoreUpsertRequest struct {
	ResourceID string   `json:"resource_id"`
	Method     string   `json:"method"`
	Records    []Record `json:"records"`
}

// UpsertRecords inserts the records or replaces the rows with the same primary
// key. Nothing is sent when there are no records.
func (c *Client) UpsertRecords(ctx context.Context, resourceID string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	return c.post(ctx, "datastore_upsert", &datastoreUpsertRequest{
		ResourceID: resourceID,
		Method:     methodUpsert,
		Records:    records,
	}, nil)
}

// DatastoreSearchRequest holds the query parameters of datastore_search.
type DatastoreSearchRequest struct {
	ResourceID string `schema:"resource_id"`
	Limit      int    `schema:"limit"`
}

type datastoreSearchResult struct {
	Total int `json:"total"`
}

var encoder = schema.NewEncoder()

// SearchTotal returns the number of rows stored in the table of a resource.
func (c *Client) SearchTotal(ctx context.Context, resourceID string) (int, error) {
	values := url.Values{}
	if err := encoder.Encode(&DatastoreSearchRequest{ResourceID: resourceID, Limit: 0}, values); err != nil {
		return 0, errors.Wrap(err, "error encoding the search parameters")
	}
	u := c.actionURL("datastore_search")
	u.RawQuery = values.Encode()

	req, err := c.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	result := &datastoreSearchResult{}
	if err := c.do(req, "datastore_search", result); err != nil {
		return 0, err
	}
	return result.Total, nil
}
