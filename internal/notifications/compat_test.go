package notifications

import "testing"

func TestResolvePassesAcceptedTypeThrough(t *testing.T) {
	c := NewTypeCompat([]Type{TypeBugReported, TypeGeneral})
	got, err := c.Resolve(TypeBugReported)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != TypeBugReported {
		t.Fatalf("expected passthrough, got %s", got)
	}
}

func TestResolveWalksFallbackChain(t *testing.T) {
	c := NewTypeCompat([]Type{TypeGeneral})
	got, err := c.Resolve(TypeMeetingScheduled)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != TypeGeneral {
		t.Fatalf("meeting_scheduled → project_update → general, got %s", got)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	c := NewTypeCompat([]Type{TypeProjectUpdate, TypeGeneral})
	first, err := c.Resolve(TypeDocumentShared)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := c.Resolve(TypeDocumentShared)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if again != first {
			t.Fatalf("resolution flapped: %s vs %s", first, again)
		}
	}
	if first != TypeProjectUpdate {
		t.Fatalf("expected nearest fallback project_update, got %s", first)
	}
}

func TestResolveFailsWhenChainExhausted(t *testing.T) {
	c := NewTypeCompat(nil)
	if _, err := c.Resolve(TypeBugFixed); err == nil {
		t.Fatal("expected error when no fallback is accepted")
	}
}
