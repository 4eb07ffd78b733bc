package raft

import "time"

// startHeartbeats spawns one independent heartbeat loop per fellow; each
// loop exits on its own once the node is no longer leader in this term.
func (n *Node) startHeartbeats(term uint64) {
	for _, fellow := range n.fellows {
		fellow := fellow
		n.background(func() { n.heartbeatLoop(fellow, term) })
	}
}

func (n *Node) heartbeatLoop(fellow string, term uint64) {
	for n.stillLeaderIn(term) {
		start := time.Now()

		hb := &Heartbeat{Term: term, Addr: n.addr, CommitIdx: n.store.CommitIdx()}
		var reply HeartbeatReply
		if err := n.transport.Send(n.sendCtx(), fellow, "heartbeat", hb, &reply); err != nil {
			n.log.HeartbeatUnreachable(term, fellow)
		} else {
			n.log.HeartbeatSent(term, fellow)
			if reply.Term > term {
				n.stepDown(reply.Term)
				return
			}
		}

		elapsed := time.Since(start)
		sleep := n.timing.HBTime - elapsed
		if sleep <= 0 {
			continue
		}
		select {
		case <-time.After(sleep):
		case <-n.stopCh:
			return
		}
	}
}

func (n *Node) stillLeaderIn(term uint64) bool {
	select {
	case <-n.stopCh:
		return false
	default:
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.role == Leader && n.currentTerm == term
}

// Heartbeat is the heartbeat handler: it adopts the sender as leader,
// steps down if necessary, and applies whatever log/commit directive the
// message carries. Messages with no action at all (a plain liveness
// ping) never touch staged or the log, matching the protocol's wire
// behavior.
func (n *Node) Heartbeat(msg *Heartbeat) *HeartbeatReply {
	n.mu.Lock()
	if msg.Term < n.currentTerm {
		term, commitIdx := n.currentTerm, n.store.CommitIdx()
		n.mu.Unlock()
		return &HeartbeatReply{Term: term, CommitIdx: commitIdx}
	}

	n.leader = msg.Addr
	if n.role == Candidate {
		n.role = Follower
	} else if n.role == Leader && msg.Term > n.currentTerm {
		n.role = Follower
	}
	if msg.Term > n.currentTerm {
		n.currentTerm = msg.Term
	}

	var toCommit *Entry
	if msg.Action != "" {
		if msg.Action == actionLog {
			n.staged = msg.Payload
		} else if n.store.CommitIdx() <= msg.CommitIdx {
			if n.staged == nil {
				n.staged = msg.Payload
			}
			toCommit = n.staged
		}
	}
	term := n.currentTerm
	n.mu.Unlock()

	n.resetElectionTimer()

	if toCommit != nil {
		n.applyCommit(term, *toCommit)
	}

	n.mu.Lock()
	commitIdx := n.store.CommitIdx()
	replyTerm := n.currentTerm
	n.mu.Unlock()

	return &HeartbeatReply{Term: replyTerm, CommitIdx: commitIdx}
}

// applyCommit moves the staged entry into the durable log and the
// key/value map, then clears the staged slot.
func (n *Node) applyCommit(term uint64, entry Entry) {
	idx := n.store.Commit(entry)

	n.mu.Lock()
	n.staged = nil
	n.mu.Unlock()

	n.log.Committed(term, idx, entry)
}

// LeaderDown handles the explicit step-aside notification: set follower
// and restart the election timer immediately.
func (n *Node) LeaderDown(msg *LeaderDown) {
	n.mu.Lock()
	n.role = Follower
	n.mu.Unlock()

	n.resetElectionTimer()
}
