package riakpb

import (
	"encoding/binary"

	"github.com/zeebo/xxh3"

	"github.com/pior/riakpb/internal"
)

// NodeSelector picks the node of a new pooled client. seq counts the
// clients created by the pool; the result is an index below nodeCount.
type NodeSelector func(seq uint64, nodeCount int) int

// DefaultNodeSelector spreads clients evenly but unordered over the nodes:
// it jump-hashes the xxh3 hash of the sequence number. Nodes appended to the
// list only take over a proportional share of new clients.
func DefaultNodeSelector(seq uint64, nodeCount int) int {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], seq)
	return internal.JumpHash(xxh3.Hash(b[:]), nodeCount)
}

// RoundRobinNodeSelector assigns nodes in turn.
func RoundRobinNodeSelector(seq uint64, nodeCount int) int {
	if nodeCount <= 0 {
		return 0
	}
	return int(seq % uint64(nodeCount))
}
