// Package raft implements the leader-election and single-entry
// replication protocol that keeps a small, statically configured set of
// peers agreeing on a key/value log. It intentionally stops short of
// canonical Raft: there is no persistent log, no snapshot transfer, and
// at most one pending (staged) mutation in flight at a time.
package raft

import (
	"context"
	"sync"
	"time"

	"raftkv/config"
	"raftkv/store"
)

// Config wires a Node to its transport, its state store, and its
// cluster-specific timing.
type Config struct {
	Addr      string
	Fellows   []string
	Timing    config.Timing
	Transport Transport
	Store     *store.Store
}

// Node is one peer's view of the cluster: its role, term, leader
// pointer, staged entry, and the background activities (election timer,
// heartbeat loops) that drive it. All role-mutating operations are
// serialized under mu; the write-serialization gate is separate and
// guards only the replication coordinator.
type Node struct {
	mu          sync.Mutex
	addr        string
	fellows     []string
	majority    int
	timing      config.Timing
	transport   Transport
	store       *store.Store
	log         *Logger

	role        Role
	currentTerm uint64
	leader      string
	voteCount   int
	staged      *Entry

	writeGate chan struct{}

	resetCh chan struct{}
	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool
}

func NewNode(cfg Config) *Node {
	n := &Node{
		addr:      cfg.Addr,
		fellows:   append([]string(nil), cfg.Fellows...),
		majority:  majority(len(cfg.Fellows) + 1),
		timing:    cfg.Timing,
		transport: cfg.Transport,
		store:     cfg.Store,
		log:       NewLogger(cfg.Addr),
		role:      Follower,
		writeGate: make(chan struct{}, 1),
		resetCh:   make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
	n.writeGate <- struct{}{}
	return n
}

// Start launches the election-timer activity. A single-node cluster
// (no fellows) elects itself at the first timeout with no RPCs.
func (n *Node) Start() {
	n.mu.Lock()
	if n.started {
		n.mu.Unlock()
		return
	}
	n.started = true
	n.mu.Unlock()

	n.wg.Add(1)
	go n.electionLoop()
}

// Shutdown stops the election timer and any running heartbeat loops
// (which observe role/term on their own and exit). Calling it again is a
// no-op.
func (n *Node) Shutdown() {
	n.mu.Lock()
	if !n.started {
		n.mu.Unlock()
		return
	}
	n.started = false
	n.mu.Unlock()

	close(n.stopCh)
	n.wg.Wait()
}

// GetState reports the current term and whether this peer believes
// itself to be leader.
func (n *Node) GetState() (uint64, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.currentTerm, n.role == Leader
}

func (n *Node) getRole() Role {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.role
}

func (n *Node) Addr() string {
	return n.addr
}

// resetElectionTimer is idempotent: a pending reset request is coalesced
// if the loop hasn't consumed the previous one yet.
func (n *Node) resetElectionTimer() {
	select {
	case n.resetCh <- struct{}{}:
	default:
	}
}

func (n *Node) electionLoop() {
	defer n.wg.Done()

	timer := time.NewTimer(randomTimeout(n.timing.LowTimeout, n.timing.HighTimeout))
	defer timer.Stop()

	for {
		select {
		case <-n.stopCh:
			return

		case <-n.resetCh:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(randomTimeout(n.timing.LowTimeout, n.timing.HighTimeout))

		case <-timer.C:
			if n.getRole() != Leader {
				n.startElection()
			}
			timer.Reset(randomTimeout(n.timing.LowTimeout, n.timing.HighTimeout))
		}
	}
}

// background spawns a goroutine tracked by the node's wait group, so
// Shutdown can be confident no stray activity outlives the peer (the
// activity itself still exits promptly via its own role/term guard).
func (n *Node) background(fn func()) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		fn()
	}()
}

func (n *Node) sendCtx() context.Context {
	return context.Background()
}
