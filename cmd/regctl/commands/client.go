package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	registryv1 "idregistry/contracts/registry"
)

// apiClient is a thin JSON client over the registry HTTP API. Commands set
// token or admin before calling; both headers are omitted when empty.
type apiClient struct {
	base  string
	http  *http.Client
	token string
	admin string
}

func newClient() *apiClient {
	return &apiClient{
		base: strings.TrimRight(serverURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// authedClient mints a short-lived token from the local key and returns a
// client carrying it, plus the caller address the key controls.
func authedClient() (*apiClient, string, error) {
	priv, addr, err := loadSigner()
	if err != nil {
		return nil, "", err
	}
	token, err := mintToken(priv)
	if err != nil {
		return nil, "", fmt.Errorf("mint token: %w", err)
	}
	c := newClient()
	c.token = token
	return c, addr.String(), nil
}

// do performs one API call. A non-nil body is sent as JSON; a non-nil out
// receives the decoded response. Error responses surface as
// "code: description".
func (c *apiClient) do(method, path string, body, out any) error {
	raw, err := c.doRaw(method, path, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// doRaw is do without response decoding; it returns the raw body for
// commands that print server JSON verbatim.
func (c *apiClient) doRaw(method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.admin != "" {
		req.Header.Set("X-Admin-Token", c.admin)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr registryv1.ErrorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			if apiErr.ErrorDescription != "" {
				return nil, fmt.Errorf("%s: %s", apiErr.Error, apiErr.ErrorDescription)
			}
			return nil, fmt.Errorf("%s", apiErr.Error)
		}
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return raw, nil
}
