package esplorawallet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/tdex-network/tdex-escrow/pkg/circuitbreaker"
	"go.uber.org/ratelimit"
)

const requestTimeout = 15 * time.Second

// client talks to the esplora REST api. Every request is rate limited and
// goes through the circuit breaker.
type client struct {
	apiURL  string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker
	limiter ratelimit.Limiter
}

func newClient(apiURL string, rps int) *client {
	return &client{
		apiURL:  strings.TrimSuffix(apiURL, "/"),
		http:    &http.Client{Timeout: requestTimeout},
		cb:      circuitbreaker.New("esplora"),
		limiter: ratelimit.New(rps),
	}
}

type txStatus struct {
	Confirmed   bool   `json:"confirmed"`
	BlockHeight uint64 `json:"block_height"`
	BlockHash   string `json:"block_hash"`
	BlockTime   int64  `json:"block_time"`
}

func (c *client) getTransactionHex(ctx context.Context, txid string) (string, error) {
	url := fmt.Sprintf("%s/tx/%s/hex", c.apiURL, txid)
	status, resp, err := c.do(ctx, http.MethodGet, url, "", nil)
	if err != nil {
		return "", err
	}
	if status == http.StatusNotFound {
		return "", fmt.Errorf("%w: %s", ErrTxNotFound, txid)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("get tx %s: %s", txid, resp)
	}
	return strings.TrimSpace(resp), nil
}

func (c *client) getTransactionStatus(ctx context.Context, txid string) (*txStatus, error) {
	url := fmt.Sprintf("%s/tx/%s/status", c.apiURL, txid)
	status, resp, err := c.do(ctx, http.MethodGet, url, "", nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrTxNotFound, txid)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("get tx %s status: %s", txid, resp)
	}

	var txStatus txStatus
	if err := json.Unmarshal([]byte(resp), &txStatus); err != nil {
		return nil, err
	}
	return &txStatus, nil
}

func (c *client) getTipHeight(ctx context.Context) (uint64, error) {
	url := fmt.Sprintf("%s/blocks/tip/height", c.apiURL)
	status, resp, err := c.do(ctx, http.MethodGet, url, "", nil)
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return 0, fmt.Errorf("get tip height: %s", resp)
	}
	return strconv.ParseUint(strings.TrimSpace(resp), 10, 64)
}

func (c *client) broadcastTransaction(ctx context.Context, txHex string) (string, error) {
	url := fmt.Sprintf("%s/tx", c.apiURL)
	headers := map[string]string{
		"Content-Type": "text/plain",
	}
	status, resp, err := c.do(ctx, http.MethodPost, url, txHex, headers)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("broadcast: %s", resp)
	}
	return strings.TrimSpace(resp), nil
}

// do returns status and body of the response. Only transport errors and
// server errors count as failures for the circuit breaker.
func (c *client) do(
	ctx context.Context, method, url, body string, headers map[string]string,
) (int, string, error) {
	c.limiter.Take()

	type response struct {
		status int
		body   string
	}
	res, err := c.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, method, url, strings.NewReader(body))
		if err != nil {
			return nil, err
		}
		for key, value := range headers {
			req.Header.Set(key, value)
		}

		rs, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer rs.Body.Close()

		buf, err := io.ReadAll(rs.Body)
		if err != nil {
			return nil, err
		}
		if rs.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("explorer replied %d: %s", rs.StatusCode, buf)
		}
		return response{rs.StatusCode, string(buf)}, nil
	})
	if err != nil {
		return 0, "", err
	}
	r := res.(response)
	return r.status, r.body, nil
}
