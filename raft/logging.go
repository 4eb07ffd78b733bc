package raft

import "github.com/sirupsen/logrus"

// Logger wraps a logrus entry scoped to one peer, with convenience methods
// for the events the core state machine raises. It replaces ad-hoc
// log.Printf calls with structured fields so a cluster's logs can be
// correlated by peer and term.
type Logger struct {
	entry *logrus.Entry
}

func NewLogger(addr string) *Logger {
	return &Logger{
		entry: logrus.WithField("peer", addr),
	}
}

func (l *Logger) term(term uint64) *logrus.Entry {
	return l.entry.WithField("term", term)
}

func (l *Logger) StateChange(from, to Role, term uint64) {
	l.term(term).WithFields(logrus.Fields{
		"from": from.String(),
		"to":   to.String(),
	}).Info("role transition")
}

func (l *Logger) ElectionStart(term uint64) {
	l.term(term).Info("starting election")
}

func (l *Logger) ElectionWon(term uint64, votes, majority int) {
	l.term(term).WithFields(logrus.Fields{
		"votes":    votes,
		"majority": majority,
	}).Info("elected leader")
}

func (l *Logger) VoteGranted(term uint64, candidate string) {
	l.term(term).WithField("candidate", candidate).Debug("vote granted")
}

func (l *Logger) VoteDenied(term uint64, candidate string) {
	l.term(term).WithField("candidate", candidate).Debug("vote denied")
}

func (l *Logger) HeartbeatSent(term uint64, fellow string) {
	l.term(term).WithField("fellow", fellow).Debug("heartbeat sent")
}

func (l *Logger) HeartbeatUnreachable(term uint64, fellow string) {
	l.term(term).WithField("fellow", fellow).Debug("heartbeat unanswered")
}

func (l *Logger) StepDown(oldTerm, newTerm uint64) {
	l.entry.WithFields(logrus.Fields{
		"old_term": oldTerm,
		"new_term": newTerm,
	}).Warn("stepping down")
}

func (l *Logger) QuorumFailed(term uint64, confirmations, majority int) {
	l.term(term).WithFields(logrus.Fields{
		"confirmations": confirmations,
		"majority":      majority,
	}).Warn("quorum not reached, write rejected")
}

func (l *Logger) Committed(term uint64, commitIdx int, entry Entry) {
	l.term(term).WithFields(logrus.Fields{
		"commit_idx": commitIdx,
		"key":        entry.Key,
	}).Info("committed entry")
}
