package updater

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/JiscSD/earthquake-datastore-updater/s3"

	"github.com/pkg/errors"
)

// Archiver stores a copy of a feed document under the given name.
type Archiver interface {
	Archive(ctx context.Context, name string, body []byte) error
}

func archiveName(operation string, t time.Time) string {
	return fmt.Sprintf("%s/%s.geojson", operation, t.UTC().Format("20060102T150405Z"))
}

// ObjectArchive is an Archiver backed by S3-compatible object storage.
type ObjectArchive struct {
	storage s3.ObjectStorage
	bucket  string
	prefix  string
}

var _ Archiver = (*ObjectArchive)(nil)

// NewObjectArchive returns an archive that writes under location, e.g.
// "s3://bucket/earthquakes".
func NewObjectArchive(storage s3.ObjectStorage, location string) (*ObjectArchive, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, errors.Wrapf(err, "error processing archive location (%q)", location)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return nil, errors.Errorf("archive location %q is not a s3://bucket/prefix URI", location)
	}
	return &ObjectArchive{
		storage: storage,
		bucket:  u.Host,
		prefix:  u.Path,
	}, nil
}

func (a *ObjectArchive) Archive(ctx context.Context, name string, body []byte) error {
	uri := fmt.Sprintf("s3://%s/%s", a.bucket, strings.TrimPrefix(path.Join("/", a.prefix, name), "/"))
	return a.storage.Upload(ctx, uri, bytes.NewReader(body))
}
