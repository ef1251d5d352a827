package core

import "testing"

func TestComputeMembershipHash_OrderIndependent(t *testing.T) {
	a := ComputeMembershipHash([]string{"a1", "a2", "a3"})
	b := ComputeMembershipHash([]string{"a3", "a1", "a2"})
	if a != b {
		t.Fatalf("expected equal hashes, got %s and %s", a, b)
	}
	if a == ComputeMembershipHash([]string{"a1", "a2"}) {
		t.Fatal("expected different member sets to hash differently")
	}
}

func TestComputePartitionHash_LabelPermutation(t *testing.T) {
	p1 := ComputePartitionHash([][]string{{"x", "y"}, {"z"}})
	p2 := ComputePartitionHash([][]string{{"z"}, {"y", "x"}})
	if p1 != p2 {
		t.Fatal("expected relabeled partition to hash identically")
	}
}
