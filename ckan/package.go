package ckan

import (
	"context"

	"github.com/pkg/errors"
)

// Dataset is the metadata sent to package_create.
type Dataset struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Notes string `json:"notes"`
}

type packageCreateResult struct {
	ID string `json:"id"`
}

// CreateDataset creates a dataset and returns its identifier.
//
// CKAN rejects names already in use, but nothing else prevents similar
// datasets from being created more than once.
func (c *Client) CreateDataset(ctx context.Context, dataset *Dataset) (string, error) {
	result := &packageCreateResult{}
	if err := c.post(ctx, "package_create", dataset, result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", errors.New("package_create did not return a dataset id")
	}
	return result.ID, nil
}
