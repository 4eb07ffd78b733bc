// Package cluster tracks the fixed peer roster a node is configured with
// at startup: its own address and its fellows. Membership never changes
// at runtime.
package cluster

import "github.com/pkg/errors"

// Roster is the static set of peers in the cluster, as loaded from the
// roster file at process start.
type Roster struct {
	Self    string
	Fellows []string
}

// New builds a Roster from an ordered list of peer addresses and the
// index of the local peer within that list.
func New(addrs []string, index int) (*Roster, error) {
	if index < 0 || index >= len(addrs) {
		return nil, errors.Errorf("roster index %d out of range for %d peers", index, len(addrs))
	}

	self := addrs[index]
	fellows := make([]string, 0, len(addrs)-1)
	for i, addr := range addrs {
		if i == index {
			continue
		}
		fellows = append(fellows, addr)
	}

	return &Roster{Self: self, Fellows: fellows}, nil
}

// Total is the cluster size including self.
func (r *Roster) Total() int {
	return len(r.Fellows) + 1
}

// Majority is the number of votes (including self) needed to win an
// election or commit a write.
func (r *Roster) Majority() int {
	return r.Total()/2 + 1
}
