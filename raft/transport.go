package raft

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Transport is the peer transport adapter: fire-and-wait RPC to a named
// peer route with a hard timeout. A non-nil error means the peer is
// unreachable this round; callers must not distinguish timeout from
// connection refusal from non-2xx status.
type Transport interface {
	Send(ctx context.Context, peer, route string, body, reply interface{}) error
}

// ErrUnreachable collapses every transport failure mode (dial error,
// timeout, non-2xx status) into one sentinel.
var ErrUnreachable = errors.New("peer unreachable")

// HTTPTransport sends JSON bodies over plain net/http, matching the
// wire contract of the client/peer HTTP facade.
type HTTPTransport struct {
	client  *http.Client
	timeout time.Duration
}

func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

func (t *HTTPTransport) Send(ctx context.Context, peer, route string, body, reply interface{}) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "encode request")
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, peer+"/"+route, bytes.NewReader(buf))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return ErrUnreachable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ErrUnreachable
	}

	if reply == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(reply); err != nil {
		return ErrUnreachable
	}
	return nil
}
