package app

import (
	"context"
	"net/http"
	"os"
	"strconv"

	"github.com/JiscSD/earthquake-datastore-updater/ckan"
	"github.com/JiscSD/earthquake-datastore-updater/feed"
	"github.com/JiscSD/earthquake-datastore-updater/s3"
	"github.com/JiscSD/earthquake-datastore-updater/updater"
	"github.com/JiscSD/earthquake-datastore-updater/version"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/google/uuid"
	"github.com/oklog/run"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/sirupsen/logrus"
)

// operation is the work done by a command once the updater is ready.
type operation func(ctx context.Context, u *updater.Updater) error

// execute builds the updater and runs op until it completes or the process
// receives a termination signal, whichever happens first. The metrics of the
// run are pushed afterwards when a Pushgateway is configured.
func execute(logger logrus.FieldLogger, config *Config, name string, op operation) error {
	logger = logger.WithField("run", uuid.New().String())

	reg := prometheus.NewRegistry()
	u, err := newUpdater(logger, config, reg)
	if err != nil {
		return err
	}

	var g run.Group
	{
		ctx, cancel := context.WithCancel(context.Background())
		g.Add(func() error {
			return op(ctx, u)
		}, func(error) {
			cancel()
		})
	}
	{
		cancel := make(chan struct{})
		g.Add(func() error {
			return interrupt(cancel)
		}, func(error) {
			close(cancel)
		})
	}
	err = g.Run()

	// Nothing was measured when the options were rejected.
	if _, ok := errors.Cause(err).(*updater.ConfigError); ok {
		return err
	}
	if perr := pushMetrics(config, name, reg); perr != nil {
		logger.Warnf("Metrics could not be pushed: %v", perr)
	}

	return err
}

func userAgent(config *Config) string {
	if config.Feed.UserAgent != "" {
		return config.Feed.UserAgent
	}
	return "earthquake-datastore-updater/" + version.VERSION
}

func newUpdater(logger logrus.FieldLogger, config *Config, reg prometheus.Registerer) (*updater.Updater, error) {
	ua := userAgent(config)

	catalog, err := ckan.New(
		&http.Client{Timeout: config.Catalog.Timeout},
		config.Main.CKANURL,
		config.Main.APIKey,
		ckan.SetUserAgent(ua))
	if err != nil {
		return nil, err
	}

	fetcher := feed.New(
		&http.Client{Timeout: config.Feed.Timeout},
		feed.SetUserAgent(ua),
		feed.SetRetries(config.Feed.Retries))

	opts := []updater.Option{
		updater.WithMetrics(updater.NewMetrics(reg)),
	}
	if config.Archive.Location != "" {
		sess, err := awsSession(logger, config.Archive.Profile, config.Archive.Endpoint)
		if err != nil {
			return nil, errors.Wrap(err, "error creating AWS session")
		}
		archive, err := updater.NewObjectArchive(s3.New(sess), config.Archive.Location)
		if err != nil {
			return nil, err
		}
		opts = append(opts, updater.WithArchiver(archive))
	}

	return updater.New(logger, updater.Config{
		CatalogURL:  config.Main.CKANURL,
		APIKey:      config.Main.APIKey,
		ResourceID:  config.Main.ResourceID,
		PastDayURL:  config.Feed.PastDayURL,
		PastHourURL: config.Feed.PastHourURL,
		Dataset: ckan.Dataset{
			Name:  config.Catalog.DatasetName,
			Title: config.Catalog.DatasetTitle,
			Notes: config.Catalog.DatasetNotes,
		},
		ResourceName:   config.Catalog.ResourceName,
		ResourceFormat: config.Catalog.ResourceFormat,
	}, catalog, fetcher, opts...), nil
}

func pushMetrics(config *Config, name string, g prometheus.Gatherer) error {
	if config.Metrics.PushgatewayURL == "" {
		return nil
	}
	return push.New(config.Metrics.PushgatewayURL, config.Metrics.Job).
		Gatherer(g).
		Grouping("command", name).
		Push()
}

type logrusProxy struct {
	logger logrus.FieldLogger
}

func (l logrusProxy) Log(args ...interface{}) {
	l.logger.WithField("client", "aws").Debug(args...)
}

// awsSession returns a session using NewSessionWithOptions meaning that it
// relies on the SDK defaults but also the user config files and environment.
//
// AWS_S3_FORCE_PATH_STYLE is a made-up environment string that the SDK does
// not look up, it is needed by most S3-compatible servers like MinIO.
func awsSession(logger logrus.FieldLogger, profile, endpoint string) (*session.Session, error) {
	options := session.Options{}
	if profile != "" {
		options.Profile = profile
	}
	if endpoint != "" {
		options.Config.WithEndpoint(endpoint)
	}
	if res, ok := os.LookupEnv("AWS_S3_FORCE_PATH_STYLE"); ok {
		enabled, _ := strconv.ParseBool(res)
		options.Config.WithS3ForcePathStyle(enabled)
	}
	if logrus.GetLevel() == logrus.DebugLevel {
		options.Config.WithCredentialsChainVerboseErrors(true)
	}
	options.Config.WithLogger(logrusProxy{logger: logger})
	return session.NewSessionWithOptions(options)
}
