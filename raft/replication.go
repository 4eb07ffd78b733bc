package raft

import (
	"sync"
	"time"
)

// Put is the leader write path: stage the entry, broadcast a "log"
// heartbeat to every fellow, wait for majority confirmation, commit
// locally, and kick off the asynchronous "commit" broadcast. It returns
// ok=false with the redirect address set when called on a follower, and
// ok=false with an empty redirect on quorum failure.
func (n *Node) Put(key, value string) (ok bool, redirect string) {
	n.mu.Lock()
	role, leader := n.role, n.leader
	n.mu.Unlock()
	if role != Leader {
		return false, leader
	}

	select {
	case <-n.writeGate:
	case <-n.stopCh:
		return false, ""
	}

	n.mu.Lock()
	term := n.currentTerm
	entry := Entry{Key: key, Value: value}
	n.staged = &entry
	commitIdx := n.store.CommitIdx()
	n.mu.Unlock()

	confirmed := make([]bool, len(n.fellows))
	var cmu sync.Mutex

	logMsg := &Heartbeat{Term: term, Addr: n.addr, Action: actionLog, Payload: &entry, CommitIdx: commitIdx}
	for i, fellow := range n.fellows {
		i, fellow := i, fellow
		n.background(func() {
			var reply HeartbeatReply
			if err := n.transport.Send(n.sendCtx(), fellow, "heartbeat", logMsg, &reply); err == nil {
				cmu.Lock()
				confirmed[i] = true
				cmu.Unlock()
				if reply.Term > term {
					n.stepDown(reply.Term)
				}
			}
		})
	}

	deadline := time.Now().Add(n.timing.MaxLogWait)
	for {
		cmu.Lock()
		count := 0
		for _, c := range confirmed {
			if c {
				count++
			}
		}
		cmu.Unlock()

		if count+1 >= n.majority {
			break
		}
		if time.Now().After(deadline) {
			n.log.QuorumFailed(term, count, n.majority)
			n.writeGate <- struct{}{}
			return false, ""
		}
		time.Sleep(500 * time.Microsecond)
	}

	idx := n.store.Commit(entry)
	n.mu.Lock()
	n.staged = nil
	n.mu.Unlock()
	n.log.Committed(term, idx, entry)

	n.background(func() {
		defer func() { n.writeGate <- struct{}{} }()

		commitMsg := &Heartbeat{Term: term, Addr: n.addr, Action: actionCommit, Payload: &entry, CommitIdx: idx}
		for _, fellow := range n.fellows {
			var reply HeartbeatReply
			n.transport.Send(n.sendCtx(), fellow, "heartbeat", commitMsg, &reply)
		}
	})

	return true, ""
}

// Get is the leader read path: a direct, non-linearizable lookup in the
// local map. Followers never attempt a local read; they redirect.
func (n *Node) Get(key string) (value string, found bool, redirect string) {
	n.mu.Lock()
	role, leader := n.role, n.leader
	n.mu.Unlock()
	if role != Leader {
		return "", false, leader
	}

	v, err := n.store.Get(key)
	if err != nil {
		return "", false, ""
	}
	return v, true, ""
}

// Delete removes a key from the leader's local map only. It does not
// travel through the replicated log, so followers keep the key and
// diverge from the leader on it.
func (n *Node) Delete(key string) (ok bool, redirect string) {
	n.mu.Lock()
	role, leader := n.role, n.leader
	n.mu.Unlock()
	if role != Leader {
		return false, leader
	}

	return n.store.Delete(key) == nil, ""
}

// ShowLog returns a snapshot of the committed log.
func (n *Node) ShowLog() []Entry {
	return n.store.Log()
}
