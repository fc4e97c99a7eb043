package roster

import (
	"context"
	"testing"
)

func TestDirectory(t *testing.T) {
	records := newFakeRecords()
	var changes []string
	d := NewDirectory(records, nil, Config{}, discardLogger(), func(owner string, a Action, _ string) {
		changes = append(changes, owner+":"+string(a))
	})

	sa := d.For(alice.UserID)
	if d.For(alice.UserID) != sa {
		t.Error("For should return the same Synchronizer for an owner")
	}
	sb := d.For(bob.UserID)
	if sb == sa {
		t.Error("owners should not share a Synchronizer")
	}
	if d.Len() != 2 {
		t.Errorf("Len = %d, want 2", d.Len())
	}

	if _, err := sa.Create(context.Background(), alice, ownedBy(alice, "Ann", "Mother")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(sb.Members()) != 0 {
		t.Error("bob's collection should not see alice's record")
	}
	if len(changes) != 1 || changes[0] != "alice:created" {
		t.Errorf("changes = %v", changes)
	}

	d.Forget(alice.UserID)
	if d.Len() != 1 {
		t.Errorf("Len after Forget = %d, want 1", d.Len())
	}
	if d.For(alice.UserID) == sa {
		t.Error("For after Forget should build a fresh Synchronizer")
	}
}
