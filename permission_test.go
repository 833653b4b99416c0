package permstore

import (
	"reflect"
	"testing"
)

func TestDefaultPolicyGovernsUnrestrictedFields(t *testing.T) {
	store := New()
	if !store.AllowedToRead("anything") || !store.AllowedToWrite("anything") {
		t.Fatalf("default rw policy should allow both actions")
	}

	locked := New(WithDefaultPolicy(PermissionNone))
	if locked.AllowedToRead("anything") || locked.AllowedToWrite("anything") {
		t.Fatalf("default none policy should deny both actions")
	}

	readOnly := New(WithDefaultPolicy(PermissionRead))
	if !readOnly.AllowedToRead("x") {
		t.Fatalf("default r policy should allow read")
	}
	if readOnly.AllowedToWrite("x") {
		t.Fatalf("default r policy should deny write")
	}
}

func TestRestrictOverridesDefaultPolicy(t *testing.T) {
	store := New(
		WithDefaultPolicy(PermissionNone),
		WithRestrictions(Restrict(PermissionRead).On("x")),
	)
	if !store.AllowedToRead("x") {
		t.Fatalf("explicit r should allow read regardless of default")
	}
	if store.AllowedToWrite("x") {
		t.Fatalf("explicit r should deny write")
	}
}

func TestNoneTokenDeniesBothActions(t *testing.T) {
	store := New(WithRestrictions(Restrict(PermissionNone).On("x")))
	if store.AllowedToRead("x") || store.AllowedToWrite("x") {
		t.Fatalf("none token must satisfy neither check")
	}
}

func TestReadWriteTokenGrantsBoth(t *testing.T) {
	store := New(
		WithDefaultPolicy(PermissionNone),
		WithRestrictions(Restrict(PermissionReadWrite).On("x")),
	)
	if !store.AllowedToRead("x") || !store.AllowedToWrite("x") {
		t.Fatalf("rw token must satisfy both checks")
	}
}

func TestUnknownTokenNeverGrants(t *testing.T) {
	store := New(WithRestrictions(Restrict(Permission("admin")).On("x")))
	if store.AllowedToRead("x") || store.AllowedToWrite("x") {
		t.Fatalf("unknown tokens must not grant access")
	}
}

func TestDeclareUnionsIntoExistingTable(t *testing.T) {
	store := New(WithRestrictions(Restrict(PermissionRead).On("x")))
	if store.AllowedToWrite("x") {
		t.Fatalf("precondition: write denied")
	}

	store.Declare(Restrict(PermissionWrite).On("x"))
	if !store.AllowedToRead("x") || !store.AllowedToWrite("x") {
		t.Fatalf("declaration should union, not replace")
	}

	want := []Permission{PermissionRead, PermissionWrite}
	if got := store.EffectivePermission("x"); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestEffectivePermissionFallsBackToDefaultPolicy(t *testing.T) {
	store := New(WithDefaultPolicy(PermissionRead))
	want := []Permission{PermissionRead}
	if got := store.EffectivePermission("unseen"); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected fallback %v, got %v", want, got)
	}
}

func TestEffectivePermissionReturnsDetachedCopy(t *testing.T) {
	store := New(WithRestrictions(Restrict(PermissionRead).On("x")))
	tokens := store.EffectivePermission("x")
	tokens[0] = PermissionReadWrite
	if store.AllowedToWrite("x") {
		t.Fatalf("mutating the returned slice must not affect the table")
	}
}

func TestRestrictionOnBindsMultipleFields(t *testing.T) {
	store := New(WithRestrictions(Restrict(PermissionRead).On("a", "b")))
	for _, field := range []string{"a", "b"} {
		if store.AllowedToWrite(field) {
			t.Fatalf("expected %q write denied", field)
		}
		if !store.AllowedToRead(field) {
			t.Fatalf("expected %q read allowed", field)
		}
	}
}

func TestMutableDefaultPolicyAppliesImmediately(t *testing.T) {
	store := New()
	store.DefaultPolicy = PermissionNone
	if store.AllowedToRead("anything") {
		t.Fatalf("policy change should take effect on the next check")
	}
}
