package group

import "testing"

func TestChainLazyCreateAndRemove(t *testing.T) {
	t.Parallel()
	tr := NewTracker()

	tr.AddToChain("c1", "a")
	tr.AddToChain("c1", "b")
	tr.AddToChain("c1", "c")

	members, ok := tr.ChainMembers("c1")
	if !ok || len(members) != 3 {
		t.Fatalf("members = %v, ok = %v, want 3 members", members, ok)
	}

	if !tr.RemoveChain("c1") {
		t.Fatal("RemoveChain must succeed for an existing chain")
	}
	if tr.RemoveChain("c1") {
		t.Fatal("RemoveChain must fail for a removed chain")
	}
	if _, ok := tr.ChainMembers("c1"); ok {
		t.Fatal("chain entry must cease to exist after removal")
	}
}

func TestRemoveFromChainDropsEmptyChain(t *testing.T) {
	t.Parallel()
	tr := NewTracker()
	tr.AddToChain("c", "only")
	tr.RemoveFromChain("c", "only")
	if tr.ChainCount() != 0 {
		t.Fatal("emptied chain must be removed")
	}
}

func TestBatchAccounting(t *testing.T) {
	t.Parallel()
	tr := NewTracker()

	tr.StartBatch("b1", 3)
	tr.BatchAttempt("b1", "n1", true)
	tr.BatchAttempt("b1", "n2", false)
	tr.BatchAttempt("b1", "n3", true)
	success, failed := tr.FinishBatch("b1")

	if success != 2 || failed != 1 {
		t.Fatalf("counts = (%d, %d), want (2, 1)", success, failed)
	}

	b, ok := tr.BatchStatus("b1")
	if !ok {
		t.Fatal("batch record must exist")
	}
	if b.Success+b.Failed != b.Total || b.Total != len(b.Members) {
		t.Fatalf("invariant success+failed == total == len(members) violated: %+v", b)
	}
	if b.DoneAt.IsZero() {
		t.Fatal("finished batch must have an end timestamp")
	}
}
