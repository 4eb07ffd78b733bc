package raft_test

import (
	"net"
	"net/http"
	"testing"
	"time"

	"raftkv/config"
	"raftkv/raft"
	"raftkv/server"
	"raftkv/store"
)

var testTiming = config.Timing{
	LowTimeout:      150 * time.Millisecond,
	HighTimeout:     300 * time.Millisecond,
	HBTime:          50 * time.Millisecond,
	MaxLogWait:      500 * time.Millisecond,
	RequestsTimeout: 100 * time.Millisecond,
}

// reserveAddr binds a loopback port so cluster tests run against a real
// HTTP listener, matching how the wire protocol actually behaves.
func reserveAddr(t *testing.T) (net.Listener, string) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	return l, "http://" + l.Addr().String()
}

func createTestCluster(t *testing.T, n int) ([]*raft.Node, []net.Listener) {
	t.Helper()

	listeners := make([]net.Listener, n)
	addrs := make([]string, n)
	for i := 0; i < n; i++ {
		l, addr := reserveAddr(t)
		listeners[i] = l
		addrs[i] = addr
	}

	nodes := make([]*raft.Node, n)
	for i := 0; i < n; i++ {
		fellows := make([]string, 0, n-1)
		for j, a := range addrs {
			if j != i {
				fellows = append(fellows, a)
			}
		}

		node := raft.NewNode(raft.Config{
			Addr:      addrs[i],
			Fellows:   fellows,
			Timing:    testTiming,
			Transport: raft.NewHTTPTransport(testTiming.RequestsTimeout),
			Store:     store.New(),
		})
		nodes[i] = node

		srv := server.New(node)
		go http.Serve(listeners[i], srv.Handler())
	}

	t.Cleanup(func() {
		for _, node := range nodes {
			node.Shutdown()
		}
		for _, l := range listeners {
			l.Close()
		}
	})

	return nodes, listeners
}

func countLeaders(nodes []*raft.Node) int {
	count := 0
	for _, n := range nodes {
		if _, isLeader := n.GetState(); isLeader {
			count++
		}
	}
	return count
}

func findLeader(nodes []*raft.Node) *raft.Node {
	for _, n := range nodes {
		if _, isLeader := n.GetState(); isLeader {
			return n
		}
	}
	return nil
}

func TestInitialState(t *testing.T) {
	node := raft.NewNode(raft.Config{
		Addr:      "http://127.0.0.1:0",
		Timing:    testTiming,
		Transport: raft.NewHTTPTransport(testTiming.RequestsTimeout),
		Store:     store.New(),
	})

	term, isLeader := node.GetState()
	if term != 0 {
		t.Errorf("expected term 0, got %d", term)
	}
	if isLeader {
		t.Error("new node should not be leader")
	}
}

func TestSingleNodeElection(t *testing.T) {
	nodes, _ := createTestCluster(t, 1)
	nodes[0].Start()

	time.Sleep(400 * time.Millisecond)

	_, isLeader := nodes[0].GetState()
	if !isLeader {
		t.Error("single node should elect itself without any RPC")
	}
}

func TestBasicElection(t *testing.T) {
	nodes, _ := createTestCluster(t, 3)
	for _, n := range nodes {
		n.Start()
	}

	time.Sleep(600 * time.Millisecond)

	if leaders := countLeaders(nodes); leaders != 1 {
		t.Errorf("expected exactly 1 leader, got %d", leaders)
	}

	terms := map[uint64]int{}
	for _, n := range nodes {
		term, _ := n.GetState()
		terms[term]++
	}
	if len(terms) != 1 {
		t.Errorf("nodes disagree on term: %v", terms)
	}
}

func TestReElectionAfterLeaderFailure(t *testing.T) {
	nodes, _ := createTestCluster(t, 3)
	for _, n := range nodes {
		n.Start()
	}
	time.Sleep(600 * time.Millisecond)

	leader := findLeader(nodes)
	if leader == nil {
		t.Fatal("no leader elected")
	}
	oldTerm, _ := leader.GetState()
	leader.Shutdown()

	var remaining []*raft.Node
	for _, n := range nodes {
		if n != leader {
			remaining = append(remaining, n)
		}
	}

	time.Sleep(700 * time.Millisecond)

	if leaders := countLeaders(remaining); leaders != 1 {
		t.Errorf("expected 1 new leader among survivors, got %d", leaders)
	}
	newTerm, _ := remaining[0].GetState()
	if newTerm <= oldTerm {
		t.Errorf("expected term to increase: old=%d new=%d", oldTerm, newTerm)
	}
}

func TestWriteThenRead(t *testing.T) {
	nodes, _ := createTestCluster(t, 3)
	for _, n := range nodes {
		n.Start()
	}
	time.Sleep(600 * time.Millisecond)

	leader := findLeader(nodes)
	if leader == nil {
		t.Fatal("no leader elected")
	}

	ok, _ := leader.Put("x", "1")
	if !ok {
		t.Fatal("put should succeed on leader")
	}

	value, found, redirect := leader.Get("x")
	if !found || redirect != "" || value != "1" {
		t.Errorf("expected to read back 1, got value=%q found=%v redirect=%q", value, found, redirect)
	}
}

func TestFollowerRedirectsWrites(t *testing.T) {
	nodes, _ := createTestCluster(t, 3)
	for _, n := range nodes {
		n.Start()
	}
	time.Sleep(600 * time.Millisecond)

	leader := findLeader(nodes)
	if leader == nil {
		t.Fatal("no leader elected")
	}

	var follower *raft.Node
	for _, n := range nodes {
		if n != leader {
			follower = n
			break
		}
	}

	ok, redirect := follower.Put("y", "2")
	if ok {
		t.Error("follower should not commit a write locally")
	}
	if redirect != leader.Addr() {
		t.Errorf("expected redirect to leader %s, got %q", leader.Addr(), redirect)
	}
}

func TestQuorumLossFailsWrite(t *testing.T) {
	nodes, listeners := createTestCluster(t, 3)
	for _, n := range nodes {
		n.Start()
	}
	time.Sleep(600 * time.Millisecond)

	leader := findLeader(nodes)
	if leader == nil {
		t.Fatal("no leader elected")
	}
	for i, n := range nodes {
		if n != leader {
			n.Shutdown()
			listeners[i].Close()
		}
	}

	start := time.Now()
	ok, redirect := leader.Put("z", "3")
	elapsed := time.Since(start)

	if ok || redirect != "" {
		t.Errorf("expected write to fail with no redirect, got ok=%v redirect=%q", ok, redirect)
	}
	if elapsed < testTiming.MaxLogWait {
		t.Errorf("expected write to wait at least MAX_LOG_WAIT (%v), took %v", testTiming.MaxLogWait, elapsed)
	}
}

func TestOneVotePerTerm(t *testing.T) {
	node := raft.NewNode(raft.Config{
		Addr:      "http://127.0.0.1:0",
		Timing:    testTiming,
		Transport: raft.NewHTTPTransport(testTiming.RequestsTimeout),
		Store:     store.New(),
	})

	resp1 := node.RequestVote(&raft.VoteRequest{Term: 1})
	if !resp1.Choice {
		t.Error("should grant first vote in term 1")
	}

	resp2 := node.RequestVote(&raft.VoteRequest{Term: 1})
	if resp2.Choice {
		t.Error("should not grant a second vote in the same term")
	}
}

func TestVoteDeniedForStaleTerm(t *testing.T) {
	node := raft.NewNode(raft.Config{
		Addr:      "http://127.0.0.1:0",
		Timing:    testTiming,
		Transport: raft.NewHTTPTransport(testTiming.RequestsTimeout),
		Store:     store.New(),
	})

	node.RequestVote(&raft.VoteRequest{Term: 5})

	resp := node.RequestVote(&raft.VoteRequest{Term: 3})
	if resp.Choice {
		t.Error("should deny vote for a term not newer than current")
	}
	if resp.Term != 5 {
		t.Errorf("expected reply term 5, got %d", resp.Term)
	}
}
