package core

import "testing"

func TestNewID_Unique(t *testing.T) {
	seen := make(map[ID]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Fatal("generated id should not be empty")
		}
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestNewRunID_NotEmpty(t *testing.T) {
	if id := NewRunID(); id.String() == "" {
		t.Error("run id should not be empty")
	}
}
