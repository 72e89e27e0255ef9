package feed

import (
	"context"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"

	"github.com/cenkalti/backoff/v3"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Document is a fetched feed: the decoded collection and the body as it was
// received.
type Document struct {
	Location   string
	Collection *FeatureCollection
	Raw        []byte
}

// Client fetches feeds from HTTP servers or from the local file system.
type Client struct {
	client    *http.Client
	fs        afero.Fs
	userAgent string
	retries   uint64
}

type ClientOpt func(*Client)

// SetUserAgent sets the User-Agent header sent to the feed server.
func SetUserAgent(userAgent string) ClientOpt {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// SetRetries sets how many times a failed request is retried. The default is
// zero, the request is attempted once.
func SetRetries(n uint64) ClientOpt {
	return func(c *Client) {
		c.retries = n
	}
}

// SetFs sets the file system used with file locations.
func SetFs(fs afero.Fs) ClientOpt {
	return func(c *Client) {
		c.fs = fs
	}
}

// New returns a feed client. http.DefaultClient is used when httpClient is
// nil.
func New(httpClient *http.Client, opts ...ClientOpt) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		client:    httpClient,
		fs:        afero.NewOsFs(),
		userAgent: "earthquake-datastore-updater",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch retrieves and decodes the feed found at location, which is either an
// HTTP(S) URL, a file URL or a plain path.
func (c *Client) Fetch(ctx context.Context, location string) (*Document, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, &FetchError{URL: location, Err: err}
	}

	var blob []byte
	switch u.Scheme {
	case "http", "https":
		blob, err = c.getWithRetries(ctx, location)
	case "file":
		blob, err = c.read(location, u.Path)
	case "":
		blob, err = c.read(location, location)
	default:
		err = &FetchError{URL: location, Err: errors.Errorf("unsupported scheme %q", u.Scheme)}
	}
	if err != nil {
		return nil, err
	}

	fc, err := Decode(blob)
	if err != nil {
		return nil, err
	}

	return &Document{Location: location, Collection: fc, Raw: blob}, nil
}

func (c *Client) read(location, path string) ([]byte, error) {
	blob, err := afero.ReadFile(c.fs, path)
	if err != nil {
		return nil, &FetchError{URL: location, Err: err}
	}
	return blob, nil
}

func (c *Client) getWithRetries(ctx context.Context, location string) ([]byte, error) {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.retries), ctx)

	var blob []byte
	err := backoff.Retry(
		func() error {
			var err error
			blob, err = c.get(ctx, location)
			if ferr, ok := err.(*FetchError); ok && ferr.StatusCode >= 400 && ferr.StatusCode < 500 {
				// Give up right away on client errors.
				return backoff.Permanent(err)
			}
			return err
		},
		policy,
	)

	return blob, err
}

func (c *Client) get(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, &FetchError{URL: location, Err: err}
	}
	req.Header.Set("Accept", "application/geo+json, application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: location, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		_, _ = io.Copy(ioutil.Discard, resp.Body)
		return nil, &FetchError{URL: location, StatusCode: resp.StatusCode}
	}

	blob, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: location, Err: errors.Wrap(err, "error reading the response body")}
	}

	return blob, nil
}
