// Package ckan is a client of the CKAN Action API limited to the dataset and
// DataStore actions used by the updater.
//
// See https://docs.ckan.org/en/latest/api/ and
// https://docs.ckan.org/en/latest/maintaining/datastore.html.
package ckan

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

const (
	mediaTypeJSON    = "application/json"
	defaultUserAgent = "earthquake-datastore-updater"
)

// Client manages communication with a CKAN instance.
type Client struct {
	client *http.Client

	// BaseURL of the CKAN instance, without trailing slash.
	BaseURL *url.URL

	// APIKey is sent in the Authorization header of every request.
	APIKey string

	// UserAgent used when communicating with CKAN.
	UserAgent string
}

type ClientOpt func(*Client)

// SetUserAgent sets the User-Agent header of the requests.
func SetUserAgent(userAgent string) ClientOpt {
	return func(c *Client) {
		c.UserAgent = userAgent
	}
}

// New returns a CKAN client. http.DefaultClient is used when httpClient is
// nil.
func New(httpClient *http.Client, baseURL, apiKey string, opts ...ClientOpt) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrapf(err, "error processing catalog URL (%q)", baseURL)
	}
	c := &Client{
		client:    httpClient,
		BaseURL:   u,
		APIKey:    apiKey,
		UserAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// actionURL returns the address of an action, e.g. "package_create".
func (c *Client) actionURL(action string) *url.URL {
	u := *c.BaseURL
	u.Path = u.Path + "/api/action/" + action
	return &u
}

// newRequest builds a request for the given action. The payload, if any, is
// encoded as JSON.
func (c *Client) newRequest(ctx context.Context, method string, u *url.URL, requestPayload interface{}) (*http.Request, error) {
	var body io.Reader
	if requestPayload != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(requestPayload); err != nil {
			return nil, errors.Wrap(err, "error encoding the request")
		}
		body = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, errors.Wrap(err, "error creating request")
	}

	if body != nil {
		req.Header.Set("Content-Type", mediaTypeJSON)
	}
	req.Header.Set("Accept", mediaTypeJSON)
	req.Header.Set("User-Agent", c.UserAgent)
	if c.APIKey != "" {
		req.Header.Set("Authorization", c.APIKey)
	}

	return req, nil
}

// response is the envelope shared by all the actions.
type response struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
}

// do sends the request and decodes the result of the action into v, unless v
// is nil in which case the response body is discarded. Any status other than
// 200 is returned as a CatalogError.
func (c *Client) do(req *http.Request, action string, v interface{}) (err error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "error sending %s request", action)
	}
	defer func() {
		if rerr := resp.Body.Close(); rerr != nil && err == nil {
			err = errors.Wrap(rerr, "error closing the response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		blob, _ := ioutil.ReadAll(resp.Body)
		return &CatalogError{Action: action, StatusCode: resp.StatusCode, Body: blob}
	}

	if v == nil {
		_, _ = io.Copy(ioutil.Discard, resp.Body)
		return nil
	}

	envelope := &response{}
	if err := json.NewDecoder(resp.Body).Decode(envelope); err != nil {
		return errors.Wrapf(err, "error decoding the %s response payload", action)
	}
	if err := json.Unmarshal(envelope.Result, v); err != nil {
		return errors.Wrapf(err, "error decoding the %s result", action)
	}

	return nil
}

func (c *Client) post(ctx context.Context, action string, requestPayload, v interface{}) error {
	req, err := c.newRequest(ctx, http.MethodPost, c.actionURL(action), requestPayload)
	if err != nil {
		return err
	}
	return c.do(req, action, v)
}
