package client_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"raftkv/client"
	"raftkv/config"
	"raftkv/raft"
	"raftkv/server"
	"raftkv/store"
)

func startSingleNode(t *testing.T) (*raft.Node, string) {
	t.Helper()

	timing := config.Timing{
		LowTimeout:      50 * time.Millisecond,
		HighTimeout:     100 * time.Millisecond,
		HBTime:          20 * time.Millisecond,
		MaxLogWait:      200 * time.Millisecond,
		RequestsTimeout: 50 * time.Millisecond,
	}

	srv := httptest.NewServer(nil)
	addr := srv.URL
	srv.Close()

	node := raft.NewNode(raft.Config{
		Addr:      addr,
		Timing:    timing,
		Transport: raft.NewHTTPTransport(timing.RequestsTimeout),
		Store:     store.New(),
	})

	ts := httptest.NewServer(server.New(node).Handler())
	t.Cleanup(func() {
		node.Shutdown()
		ts.Close()
	})

	return node, ts.URL
}

func TestClientPutGetRoundTrip(t *testing.T) {
	node, addr := startSingleNode(t)
	node.Start()
	time.Sleep(200 * time.Millisecond)

	c := client.New(time.Second)

	putResult, err := c.Put(addr, "x", "1")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if putResult.Code != "success" {
		t.Fatalf("expected success, got %+v", putResult)
	}

	getResult, err := c.Get(addr, "x")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if getResult.Code != "success" || getResult.Payload.Value != "1" {
		t.Fatalf("expected value 1, got %+v", getResult)
	}
}

func TestClientDeleteThenGetMisses(t *testing.T) {
	node, addr := startSingleNode(t)
	node.Start()
	time.Sleep(200 * time.Millisecond)

	c := client.New(time.Second)

	if _, err := c.Put(addr, "x", "1"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := c.Delete(addr, "x"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	getResult, err := c.Get(addr, "x")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if getResult.Code != "fail" {
		t.Fatalf("expected fail after delete, got %+v", getResult)
	}
}
