package s3

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/pkg/errors"
)

const contentTypeGeoJSON = "application/geo+json"

// ObjectStorage is a S3-compatible storage interface.
type ObjectStorage interface {
	Upload(ctx context.Context, URI string, body io.ReadSeeker) error
}

// ObjectStorageImpl is our implementation of the ObjectStorage interface.
type ObjectStorageImpl struct {
	client s3iface.S3API
}

var _ ObjectStorage = (*ObjectStorageImpl)(nil)

// New returns a pointer to a new ObjectStorageImpl.
func New(sess *session.Session) *ObjectStorageImpl {
	return &ObjectStorageImpl{client: s3.New(sess)}
}

// Upload stores the contents of body under the given s3:// URI. Feed
// documents are small so a single PutObject request is used.
func (s *ObjectStorageImpl) Upload(ctx context.Context, URI string, body io.ReadSeeker) error {
	bucket, key, err := getBucketAndKey(URI)
	if err != nil {
		return err
	}
	if bucket == "" || key == "" {
		return errors.Errorf("object URI %q needs a bucket and a key", URI)
	}
	_, err = s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentTypeGeoJSON),
	})
	return errors.Wrapf(err, "error uploading %s", URI)
}

func getBucketAndKey(URI string) (bucket string, key string, err error) {
	u, err := url.Parse(URI)
	if err != nil {
		return "", "", err
	}
	return u.Hostname(), strings.TrimPrefix(u.Path, "/"), nil
}
