package main

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	requestTimeout = 30 * time.Second
)

type daemonClient struct {
	baseURL string
	http    *http.Client
}

func newDaemonClient(baseURL, tlsCertPath string) (*daemonClient, error) {
	httpClient := &http.Client{Timeout: requestTimeout}

	if len(tlsCertPath) > 0 {
		cert, err := os.ReadFile(tlsCertPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read tls cert: %s", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(cert) {
			return nil, fmt.Errorf("invalid tls cert %s", tlsCertPath)
		}
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12},
		}
	}

	return &daemonClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httpClient,
	}, nil
}

func getDaemonClient() (*daemonClient, error) {
	state, err := getState()
	if err != nil {
		return nil, err
	}
	address, ok := state["rpcserver"]
	if !ok {
		return nil, errors.New("set rpcserver with `config set rpcserver`")
	}
	scheme := "http"
	if len(state["tls_cert_path"]) > 0 {
		scheme = "https"
	}
	return newDaemonClient(
		fmt.Sprintf("%s://%s", scheme, address), state["tls_cert_path"],
	)
}

// do sends the request and decodes the reply into out, if not nil. Error
// replies of the daemon are returned as errors.
func (c *daemonClient) do(method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("unable to connect to daemon: %v", err)
	}
	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var reply struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(buf, &reply); err != nil || len(reply.Error) <= 0 {
			return fmt.Errorf("daemon replied with status %d", resp.StatusCode)
		}
		return errors.New(reply.Error)
	}

	if out == nil || len(buf) <= 0 {
		return nil
	}
	return json.Unmarshal(buf, out)
}

func (c *daemonClient) get(path string, out interface{}) error {
	return c.do(http.MethodGet, path, nil, out)
}

func (c *daemonClient) post(path string, body, out interface{}) error {
	return c.do(http.MethodPost, path, body, out)
}

func (c *daemonClient) delete(path string, out interface{}) error {
	return c.do(http.MethodDelete, path, nil, out)
}

// call runs fn with a client and prints the reply.
func call(fn func(c *daemonClient) (interface{}, error)) error {
	client, err := getDaemonClient()
	if err != nil {
		return err
	}
	reply, err := fn(client)
	if err != nil {
		return err
	}
	if reply != nil {
		printRespJSON(reply)
	}
	return nil
}
