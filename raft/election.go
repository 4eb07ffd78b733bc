package raft

// startElection transitions the node to candidate in a fresh term,
// self-votes, and fans a vote request out to every fellow concurrently.
// A majority of one (no fellows) elects the node immediately, with no
// RPC round at all.
func (n *Node) startElection() {
	n.mu.Lock()
	n.role = Candidate
	n.currentTerm++
	term := n.currentTerm
	n.voteCount = 1
	n.leader = ""
	staged := n.staged

	becameLeader := n.voteCount >= n.majority
	if becameLeader {
		n.role = Leader
		n.leader = n.addr
	}
	votes := n.voteCount
	n.mu.Unlock()

	n.log.ElectionStart(term)
	n.resetElectionTimer()

	if becameLeader {
		n.log.ElectionWon(term, votes, n.majority)
		n.startHeartbeats(term)
		return
	}

	for _, fellow := range n.fellows {
		fellow := fellow
		n.background(func() { n.askForVote(fellow, term, staged) })
	}
}

// askForVote retries an unresponsive fellow until a reply arrives or the
// node is no longer a candidate in this term; each reply, once received,
// is counted at most once.
func (n *Node) askForVote(fellow string, term uint64, staged *Entry) {
	req := &VoteRequest{Term: term, CommitIdx: n.store.CommitIdx(), Staged: staged}

	for n.stillCandidateIn(term) {
		var reply VoteReply
		if err := n.transport.Send(n.sendCtx(), fellow, "vote_req", req, &reply); err != nil {
			continue
		}

		if reply.Choice {
			n.log.VoteGranted(term, fellow)
			n.incrementVote(term)
		} else if reply.Term > term {
			n.stepDown(reply.Term)
		}
		break
	}
}

func (n *Node) stillCandidateIn(term uint64) bool {
	select {
	case <-n.stopCh:
		return false
	default:
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.role == Candidate && n.currentTerm == term
}

// incrementVote records a granted vote and promotes the node to leader
// the moment the tally reaches majority, provided it is still a
// candidate in the term that earned the vote.
func (n *Node) incrementVote(term uint64) {
	n.mu.Lock()
	if n.role != Candidate || n.currentTerm != term {
		n.mu.Unlock()
		return
	}

	n.voteCount++
	votes := n.voteCount
	becameLeader := votes >= n.majority
	if becameLeader {
		n.role = Leader
		n.leader = n.addr
	}
	n.mu.Unlock()

	if becameLeader {
		n.log.ElectionWon(term, votes, n.majority)
		n.startHeartbeats(term)
	}
}

// RequestVote is the vote_req handler: grant iff the candidate's term
// is strictly newer, its commit index is at least as fresh as ours, and
// either it carries a staged entry or our own staged slot matches its
// claim of one (a weaker freshness check than canonical Raft's
// last-log comparison, transcribed as the wire contract specifies).
func (n *Node) RequestVote(req *VoteRequest) *VoteReply {
	n.mu.Lock()
	grant := req.Term > n.currentTerm &&
		n.store.CommitIdx() <= req.CommitIdx &&
		(req.Staged != nil || entriesEqual(n.staged, req.Staged))

	if grant {
		n.currentTerm = req.Term
	}
	term := n.currentTerm
	n.mu.Unlock()

	if grant {
		n.resetElectionTimer()
		n.log.VoteGranted(req.Term, "")
	} else {
		n.log.VoteDenied(req.Term, "")
	}

	return &VoteReply{Choice: grant, Term: term}
}

// stepDown unconditionally applies observe-term semantics regardless of
// current role: if t is strictly newer, adopt it, fall back to
// follower, clear the leader pointer, and restart the election timer.
func (n *Node) stepDown(t uint64) bool {
	n.mu.Lock()
	if t <= n.currentTerm {
		n.mu.Unlock()
		return false
	}

	old := n.currentTerm
	n.currentTerm = t
	n.role = Follower
	n.leader = ""
	n.mu.Unlock()

	n.log.StepDown(old, t)
	n.resetElectionTimer()
	return true
}

func entriesEqual(a, b *Entry) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
