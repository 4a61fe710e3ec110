package pubsub

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxResponseSize = 1 << 16

type client struct {
	*http.Client
}

func newHTTPClient(requestTimeout time.Duration) *client {
	return &client{&http.Client{Timeout: requestTimeout}}
}

// post returns the status code and the (truncated) body of the response.
func (c *client) post(
	ctx context.Context, url, body string, header map[string]string,
) (int, string, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, url, strings.NewReader(body),
	)
	if err != nil {
		return 0, "", err
	}
	for key, value := range header {
		req.Header.Set(key, value)
	}

	rs, err := c.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer rs.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(rs.Body, maxResponseSize))
	if err != nil {
		return -1, "", err
	}
	return rs.StatusCode, string(respBody), nil
}
