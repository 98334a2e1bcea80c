package dedup

import (
	"fmt"
	"testing"
)

func TestCache_MarkAndContains(t *testing.T) {
	cache, err := NewCache(10)
	if err != nil {
		t.Fatalf("NewCache error: %v", err)
	}

	if cache.Contains("1700000000000-0") {
		t.Error("unmarked ID should not be present")
	}

	cache.Mark("1700000000000-0")
	if !cache.Contains("1700000000000-0") {
		t.Error("marked ID should be present")
	}
	if cache.Len() != 1 {
		t.Errorf("Len() = %d, want 1", cache.Len())
	}
}

func TestCache_EvictsOldestAtCapacity(t *testing.T) {
	cache, err := NewCache(3)
	if err != nil {
		t.Fatalf("NewCache error: %v", err)
	}

	for i := 0; i < 4; i++ {
		cache.Mark(fmt.Sprintf("%d-0", i))
	}

	if cache.Len() != 3 {
		t.Errorf("Len() = %d, want 3", cache.Len())
	}
	if cache.Contains("0-0") {
		t.Error("oldest ID should have been evicted")
	}
	if !cache.Contains("3-0") {
		t.Error("newest ID should be present")
	}
}

func TestCache_ContainsRefreshesRecency(t *testing.T) {
	cache, err := NewCache(2)
	if err != nil {
		t.Fatalf("NewCache error: %v", err)
	}

	cache.Mark("a-0")
	cache.Mark("b-0")

	// Touching a-0 makes b-0 the eviction candidate.
	cache.Contains("a-0")
	cache.Mark("c-0")

	if !cache.Contains("a-0") {
		t.Error("recently touched ID should survive eviction")
	}
	if cache.Contains("b-0") {
		t.Error("least recently used ID should have been evicted")
	}
}

func TestNewCache_RejectsInvalidCapacity(t *testing.T) {
	if _, err := NewCache(0); err == nil {
		t.Error("NewCache(0) should return an error")
	}
}
