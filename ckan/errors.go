package ckan

import "fmt"

// CatalogError reports a response from CKAN with a status other than 200.
// Body is the raw response, CKAN describes the problem there.
type CatalogError struct {
	Action     string
	StatusCode int
	Body       []byte
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("catalog action %s failed with status %d: %s", e.Action, e.StatusCode, e.Body)
}
