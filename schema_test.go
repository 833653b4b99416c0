package permstore

import "testing"

func TestSchemaDerivesReadableDescriptors(t *testing.T) {
	store := New(WithRestrictions(Restrict(PermissionWrite).On("hidden")))
	if err := store.WriteEntries(map[string]any{
		"name":   "svc",
		"hidden": "secret",
		"limits": map[string]any{"daily": 10, "weekly": 70},
	}); err != nil {
		t.Fatalf("write entries: %v", err)
	}

	doc, err := store.Schema()
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if doc.Format != SchemaFormatDescriptors {
		t.Fatalf("unexpected format %q", doc.Format)
	}
	descriptors, ok := doc.Document.([]FieldDescriptor)
	if !ok {
		t.Fatalf("unexpected document type %T", doc.Document)
	}

	byPath := map[string]FieldDescriptor{}
	for _, descriptor := range descriptors {
		byPath[descriptor.Path] = descriptor
	}
	if _, ok := byPath["hidden"]; ok {
		t.Fatalf("schema must not expose unreadable fields: %+v", descriptors)
	}
	if got := byPath["name"]; got.Type != "string" || got.Permission != "rw" {
		t.Fatalf("unexpected name descriptor: %+v", got)
	}
	if got := byPath["limits:daily"]; got.Type != "int" {
		t.Fatalf("expected nested plain structure path, got %+v", got)
	}
}

func TestSchemaRecursesChildStores(t *testing.T) {
	child := New()
	if _, err := child.Write("flag", true); err != nil {
		t.Fatalf("write: %v", err)
	}
	child.Declare(Restrict(PermissionRead).On("flag"))
	parent := New()
	if _, err := parent.Write("child", child); err != nil {
		t.Fatalf("write: %v", err)
	}

	doc, err := parent.Schema()
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	descriptors := doc.Document.([]FieldDescriptor)
	if len(descriptors) != 1 {
		t.Fatalf("expected 1 descriptor, got %+v", descriptors)
	}
	if descriptors[0].Path != "child:flag" || descriptors[0].Permission != "r" {
		t.Fatalf("unexpected descriptor: %+v", descriptors[0])
	}
}

func TestSchemaMarksLazyFieldsOpaque(t *testing.T) {
	store := New()
	if _, err := store.Write("lazy", Lazy(func() any { return 1 })); err != nil {
		t.Fatalf("write: %v", err)
	}
	doc, err := store.Schema()
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	descriptors := doc.Document.([]FieldDescriptor)
	if len(descriptors) != 1 || descriptors[0].Type != "lazy" {
		t.Fatalf("expected lazy descriptor, got %+v", descriptors)
	}
}

func TestSchemaNilStore(t *testing.T) {
	doc, err := DefaultSchemaGenerator().Generate(nil)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	descriptors := doc.Document.([]FieldDescriptor)
	if len(descriptors) != 0 {
		t.Fatalf("expected empty document, got %+v", descriptors)
	}
}
