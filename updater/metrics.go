package updater

import (
	"strconv"

	"github.com/JiscSD/earthquake-datastore-updater/ckan"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "earthquake_datastore_updater"

// Metrics collected during a run.
type Metrics struct {
	FeedRecords     *prometheus.CounterVec
	CatalogRequests *prometheus.CounterVec
	RowsUpserted    prometheus.Counter
}

// NewMetrics returns the metrics registered in reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FeedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_records_total",
			Help:      "The total number of records flattened from the feed.",
		}, []string{"operation"}),
		CatalogRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_requests_total",
			Help:      "The total number of requests sent to the catalog.",
		}, []string{"action", "code"}),
		RowsUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datastore_rows_upserted_total",
			Help:      "The total number of rows sent to datastore_upsert.",
		}),
	}
	reg.MustRegister(m.FeedRecords, m.CatalogRequests, m.RowsUpserted)
	return m
}

// observeRequest counts a catalog request by action and outcome.
func (m *Metrics) observeRequest(action string, err error) {
	code := "200"
	if err != nil {
		code = "error"
		if cerr, ok := errors.Cause(err).(*ckan.CatalogError); ok {
			code = strconv.Itoa(cerr.StatusCode)
		}
	}
	m.CatalogRequests.WithLabelValues(action, code).Inc()
}
