package raft

import (
	"crypto/rand"
	"math/big"
	"time"
)

// randomTimeout draws a duration uniformly from [low, high]. If low > high
// the bounds are swapped rather than treated as an error.
func randomTimeout(low, high time.Duration) time.Duration {
	if low > high {
		low, high = high, low
	}
	if low == high {
		return low
	}
	span := big.NewInt(int64(high-low) + 1)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return low
	}
	return low + time.Duration(n.Int64())
}

// majority returns the minimum number of votes (including self) needed to
// win an election or commit a write across a cluster of the given total
// size (fellows + self).
func majority(total int) int {
	return total/2 + 1
}
