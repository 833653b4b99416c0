package permstore

import (
	"fmt"
	"testing"
)

func BenchmarkReadDeepPath(b *testing.B) {
	store := New()
	for i := 0; i < 10; i++ {
		path := fmt.Sprintf("section_%d:limits:weekly", i)
		if _, err := store.Write(path, 700-i*10); err != nil {
			b.Fatalf("write: %v", err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := store.Read("section_5:limits:weekly"); err != nil {
			b.Fatalf("read: %v", err)
		}
	}
}

func BenchmarkReadWithTrace(b *testing.B) {
	store := New()
	if _, err := store.Write("limits:daily:max", 100); err != nil {
		b.Fatalf("write: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := store.ReadWithTrace("limits:daily:max"); err != nil {
			b.Fatalf("read: %v", err)
		}
	}
}

func BenchmarkGuardedPermissionCheck(b *testing.B) {
	store := New(
		WithProgramCache(NewMemoryProgramCache()),
		WithRestrictions(RestrictWhen(`action == "r"`, PermissionReadWrite).On("guarded")),
	)
	if _, err := store.Write("plain", 1); err != nil {
		b.Fatalf("write: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !store.AllowedToRead("guarded") {
			b.Fatalf("expected guard to allow read")
		}
	}
}
