// Package updater keeps a CKAN DataStore table in sync with the USGS
// earthquake feeds.
//
// Setup creates the dataset and the table and loads the events of the past
// day. Update is meant to be run periodically, e.g. every hour from cron, and
// upserts the events of the past hour. Overlapping windows are harmless
// because rows are matched on their code.
package updater

import (
	"context"
	"time"

	"github.com/JiscSD/earthquake-datastore-updater/ckan"
	"github.com/JiscSD/earthquake-datastore-updater/feed"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Catalog is the subset of the CKAN API used by the updater.
type Catalog interface {
	CreateDataset(ctx context.Context, dataset *ckan.Dataset) (string, error)
	CreateTable(ctx context.Context, r *ckan.DatastoreCreateRequest) (string, error)
	UpsertRecords(ctx context.Context, resourceID string, records []ckan.Record) error
	SearchTotal(ctx context.Context, resourceID string) (int, error)
}

var _ Catalog = (*ckan.Client)(nil)

// Fetcher retrieves feed documents.
type Fetcher interface {
	Fetch(ctx context.Context, location string) (*feed.Document, error)
}

var _ Fetcher = (*feed.Client)(nil)

// Config holds the settings of the updater.
type Config struct {
	CatalogURL string
	APIKey     string

	// ResourceID of the DataStore table. Setup returns it, Update and Status
	// need it.
	ResourceID string

	PastDayURL  string
	PastHourURL string

	Dataset        ckan.Dataset
	ResourceName   string
	ResourceFormat string
}

func (c Config) validate(withResource bool) error {
	if c.CatalogURL == "" {
		return &ConfigError{Key: "ckan_url"}
	}
	if c.APIKey == "" {
		return &ConfigError{Key: "api_key"}
	}
	if withResource && c.ResourceID == "" {
		return &ConfigError{Key: "resource_id", Hint: "add the resource id returned by setup to the configuration file, did you run setup first?"}
	}
	return nil
}

// SetupResult describes what Setup created.
type SetupResult struct {
	DatasetID  string
	ResourceID string
	Records    int
}

type Updater struct {
	logger   logrus.FieldLogger
	config   Config
	catalog  Catalog
	fetcher  Fetcher
	archiver Archiver
	metrics  *Metrics
	now      func() time.Time
}

type Option func(*Updater)

// WithArchiver keeps a copy of every feed document fetched.
func WithArchiver(a Archiver) Option {
	return func(u *Updater) {
		u.archiver = a
	}
}

// WithMetrics sets where the metrics of the run are collected. By default
// they are registered in a private registry.
func WithMetrics(m *Metrics) Option {
	return func(u *Updater) {
		u.metrics = m
	}
}

func New(logger logrus.FieldLogger, config Config, catalog Catalog, fetcher Fetcher, opts ...Option) *Updater {
	u := &Updater{
		logger:  logger,
		config:  config,
		catalog: catalog,
		fetcher: fetcher,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.metrics == nil {
		u.metrics = NewMetrics(prometheus.NewRegistry())
	}
	return u
}

// Setup creates the dataset and its DataStore table populated with the
// earthquakes of the past day.
//
// Nothing is rolled back on failure, e.g. the dataset is left behind when the
// table cannot be created. Running Setup again creates a new dataset.
func (u *Updater) Setup(ctx context.Context) (*SetupResult, error) {
	if err := u.config.validate(false); err != nil {
		return nil, err
	}
	logger := u.logger.WithField("operation", "setup")

	datasetID, err := u.catalog.CreateDataset(ctx, &u.config.Dataset)
	u.metrics.observeRequest("package_create", err)
	if err != nil {
		return nil, errors.Wrap(err, "error creating dataset")
	}
	logger.WithField("dataset_id", datasetID).Info("Dataset created")

	records, err := u.fetchRecords(ctx, logger, "setup", u.config.PastDayURL)
	if err != nil {
		return nil, err
	}

	resourceID, err := u.catalog.CreateTable(ctx, &ckan.DatastoreCreateRequest{
		Resource: ckan.Resource{
			PackageID: datasetID,
			Name:      u.config.ResourceName,
			Format:    u.config.ResourceFormat,
		},
		Records:    rows(records),
		Fields:     Fields,
		PrimaryKey: PrimaryKey,
	})
	u.metrics.observeRequest("datastore_create", err)
	if err != nil {
		return nil, errors.Wrap(err, "error creating DataStore table")
	}
	logger.WithFields(logrus.Fields{
		"resource_id": resourceID,
		"records":     len(records),
	}).Info("DataStore table created")

	return &SetupResult{
		DatasetID:  datasetID,
		ResourceID: resourceID,
		Records:    len(records),
	}, nil
}

// Update upserts the earthquakes of the past hour into the table and returns
// the number of records sent.
func (u *Updater) Update(ctx context.Context) (int, error) {
	if err := u.config.validate(true); err != nil {
		return 0, err
	}
	logger := u.logger.WithFields(logrus.Fields{
		"operation":   "update",
		"resource_id": u.config.ResourceID,
	})

	records, err := u.fetchRecords(ctx, logger, "update", u.config.PastHourURL)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		logger.Info("No new records")
		return 0, nil
	}

	err = u.catalog.UpsertRecords(ctx, u.config.ResourceID, rows(records))
	u.metrics.observeRequest("datastore_upsert", err)
	if err != nil {
		return 0, errors.Wrap(err, "error upserting records")
	}
	u.metrics.RowsUpserted.Add(float64(len(records)))
	logger.WithField("records", len(records)).Info("Records upserted")

	return len(records), nil
}

// Status returns the number of rows stored in the table.
func (u *Updater) Status(ctx context.Context) (int, error) {
	if err := u.config.validate(true); err != nil {
		return 0, err
	}
	total, err := u.catalog.SearchTotal(ctx, u.config.ResourceID)
	u.metrics.observeRequest("datastore_search", err)
	if err != nil {
		return 0, errors.Wrap(err, "error searching DataStore table")
	}
	return total, nil
}

// Fetch returns the records currently published in the feed at location
// without sending them anywhere.
func (u *Updater) Fetch(ctx context.Context, location string) ([]feed.Record, error) {
	return u.fetchRecords(ctx, u.logger.WithField("operation", "fetch"), "fetch", location)
}

func (u *Updater) fetchRecords(ctx context.Context, logger logrus.FieldLogger, operation, location string) ([]feed.Record, error) {
	doc, err := u.fetcher.Fetch(ctx, location)
	if err != nil {
		return nil, errors.Wrap(err, "error fetching feed")
	}

	now := u.now()
	if u.archiver != nil {
		name := archiveName(operation, now)
		if err := u.archiver.Archive(ctx, name, doc.Raw); err != nil {
			// The copy is a convenience, the run goes on.
			logger.WithField("name", name).Warnf("Feed document could not be archived: %v", err)
		}
	}

	records, err := feed.Flatten(doc.Collection, now)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading feed %s", location)
	}
	u.metrics.FeedRecords.WithLabelValues(operation).Add(float64(len(records)))

	for i, r := range records {
		if r.Code() == "" {
			logger.WithField("index", i).Warn("Record without code, the catalog is likely to reject it")
			continue
		}
		logger.WithFields(logrus.Fields{
			"code":  r.Code(),
			"mag":   r.Magnitude(),
			"place": r.Place(),
			"time":  r.Time().Format(time.RFC3339),
		}).Debug("Record read")
	}
	logger.WithFields(logrus.Fields{
		"feed":    location,
		"records": len(records),
	}).Debug("Feed fetched")

	return records, nil
}

func rows(records []feed.Record) []ckan.Record {
	rows := make([]ckan.Record, 0, len(records))
	for _, r := range records {
		rows = append(rows, ckan.Record(r.Fields()))
	}
	return rows
}
