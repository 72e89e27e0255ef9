package updater

import "github.com/JiscSD/earthquake-datastore-updater/ckan"

// Fields is the schema of the DataStore table. The types are set explicitly
// so CKAN does not have to guess them from the first rows, e.g. a null felt.
var Fields = []ckan.Field{
	{ID: "mag", Type: "float"},
	{ID: "place", Type: "text"},
	{ID: "time", Type: "bigint"},
	{ID: "updated", Type: "bigint"},
	{ID: "tz", Type: "integer"},
	{ID: "url", Type: "text"},
	{ID: "detail", Type: "text"},
	{ID: "felt", Type: "integer"},
	{ID: "cdi", Type: "float"},
	{ID: "mmi", Type: "float"},
	{ID: "alert", Type: "text"},
	{ID: "status", Type: "text"},
	{ID: "tsunami", Type: "integer"},
	{ID: "sig", Type: "integer"},
	{ID: "net", Type: "text"},
	{ID: "code", Type: "text"},
	{ID: "ids", Type: "text"},
	{ID: "sources", Type: "text"},
	{ID: "types", Type: "text"},
	{ID: "nst", Type: "integer"},
	{ID: "dmin", Type: "float"},
	{ID: "rms", Type: "float"},
	{ID: "gap", Type: "float"},
	{ID: "magType", Type: "text"},
	{ID: "type", Type: "text"},
}

// PrimaryKey of the DataStore table. Upserts match rows on it.
var PrimaryKey = []string{"code"}
