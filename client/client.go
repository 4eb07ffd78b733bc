// Package client implements the redirect-following client library used
// by both the interactive CLI and any programmatic caller: it contacts
// whichever peer it is given, and if that peer is not the leader,
// follows the redirect it returns until one replies with a final
// result.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type payload struct {
	Key     string `json:"key"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message,omitempty"`
}

type requestBody struct {
	Type    string  `json:"type"`
	Payload payload `json:"payload"`
}

// Result is the final, non-redirected reply from the leader.
type Result struct {
	Code    string `json:"code"`
	Payload payload
}

// Client is a thin HTTP client that knows the wire shapes of /request
// and /show_log and how to follow a leader redirect.
type Client struct {
	http *http.Client
}

func New(timeout time.Duration) *Client {
	return &Client{http: &http.Client{Timeout: timeout}}
}

// Put stores key=value, starting at addr and following redirects to the
// current leader.
func (c *Client) Put(addr, key, value string) (*Result, error) {
	return c.roundTrip(addr, http.MethodPut, requestBody{
		Type:    "put",
		Payload: payload{Key: key, Value: value},
	})
}

// Get retrieves key, starting at addr and following redirects.
func (c *Client) Get(addr, key string) (*Result, error) {
	return c.roundTrip(addr, http.MethodGet, requestBody{
		Type:    "get",
		Payload: payload{Key: key},
	})
}

// Delete removes key, starting at addr and following redirects, the
// same way Get and Put do.
func (c *Client) Delete(addr, key string) (*Result, error) {
	return c.roundTrip(addr, http.MethodDelete, requestBody{
		Type:    "delete",
		Payload: payload{Key: key},
	})
}

// ShowLog fetches the committed log from whichever peer addr names
// (no redirect: any peer's log is a valid thing to inspect).
func (c *Client) ShowLog(addr string) ([]map[string]string, error) {
	req, err := http.NewRequest(http.MethodGet, addr+"/show_log", nil)
	if err != nil {
		return nil, errors.Wrap(err, "build show_log request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "show_log request")
	}
	defer resp.Body.Close()

	var out struct {
		Log []map[string]string `json:"log"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, "decode show_log reply")
	}
	return out.Log, nil
}

func (c *Client) roundTrip(addr, method string, body requestBody) (*Result, error) {
	target := addr + "/request"
	requestID := uuid.NewString()

	for {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encode request")
		}

		req, err := http.NewRequest(method, target, bytes.NewReader(buf))
		if err != nil {
			return nil, errors.Wrap(err, "build request")
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Request-Id", requestID)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, errors.Wrapf(err, "contact %s", target)
		}

		var raw struct {
			Code    string  `json:"code"`
			Payload payload `json:"payload"`
		}
		decodeErr := json.NewDecoder(resp.Body).Decode(&raw)
		resp.Body.Close()
		if decodeErr != nil {
			return nil, errors.Wrap(decodeErr, "decode reply")
		}

		if raw.Payload.Message == "" {
			return &Result{Code: raw.Code, Payload: raw.Payload}, nil
		}

		target = raw.Payload.Message + "/request"
		fmt.Printf("redirecting to leader at %s\n", target)
	}
}
