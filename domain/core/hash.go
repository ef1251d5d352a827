package core

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// MembershipHash fingerprints a cohort's member set independent of member order.
type MembershipHash Hash

func (h MembershipHash) String() string { return Hash(h).String() }

// ComputeMembershipHash hashes the sorted member IDs of a cluster.
func ComputeMembershipHash(actorIDs []string) MembershipHash {
	sorted := make([]string, len(actorIDs))
	copy(sorted, actorIDs)
	sort.Strings(sorted)

	var data strings.Builder
	for _, id := range sorted {
		data.WriteString(id)
		data.WriteByte(0)
	}
	return MembershipHash(NewHash([]byte(data.String())))
}

// ComputePartitionHash fingerprints a whole partition: the multiset of member-set
// hashes, so relabeling clusters does not change it.
func ComputePartitionHash(clusters [][]string) Hash {
	hashes := make([]string, 0, len(clusters))
	for _, members := range clusters {
		hashes = append(hashes, ComputeMembershipHash(members).String())
	}
	sort.Strings(hashes)
	return NewHash([]byte(strings.Join(hashes, "|")))
}
