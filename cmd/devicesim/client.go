package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type client struct {
	base   string
	apiKey string
	token  string
	http   *http.Client
}

func newClient(base string) *client {
	return &client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *client) do(method, path string, body, out any) (int, error) {
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		buf = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, c.base+path, buf)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = resp.Status
		}
		return resp.StatusCode, fmt.Errorf("%s %s: %s", method, path, e.Error)
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func (c *client) login(username, password string) (string, error) {
	var out struct {
		AccessToken string `json:"access_token"`
	}
	_, err := c.do(http.MethodPost, "/api/auth/login",
		map[string]string{"username": username, "password": password}, &out)
	if err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

type deviceInfo struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Status string `json:"status"`
}

func (c *client) devices() ([]deviceInfo, error) {
	var out []deviceInfo
	if _, err := c.do(http.MethodGet, "/api/devices", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type deviceCommand struct {
	ID     int64  `json:"id"`
	Action string `json:"action"`
}

// nextCommand returns nil when the queue is empty.
func (c *client) nextCommand() (*deviceCommand, error) {
	var cmd deviceCommand
	status, err := c.do(http.MethodGet, "/api/device/commands/next", nil, &cmd)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent {
		return nil, nil
	}
	return &cmd, nil
}

type reportPayload struct {
	Status       string   `json:"status,omitempty"`
	NumericValue *float64 `json:"numeric_value,omitempty"`
	TextValue    string   `json:"text_value,omitempty"`
}

func (c *client) report(p reportPayload) error {
	_, err := c.do(http.MethodPost, "/api/device/report", p, nil)
	return err
}
