package permstore

import (
	"fmt"
	"sort"
	"strings"
)

// SchemaFormat identifies the representation a schema document encodes.
type SchemaFormat string

// SchemaFormatDescriptors represents the flattened field descriptors.
const SchemaFormatDescriptors SchemaFormat = "descriptors"

// SchemaDocument encapsulates a generated schema output alongside its format
// identifier. Document must be JSON-serialisable.
type SchemaDocument struct {
	Format   SchemaFormat
	Document any
}

// SchemaGenerator transforms a store into a schema document. Implementations
// must handle nil stores by returning an empty document.
type SchemaGenerator interface {
	Generate(store *Store) (SchemaDocument, error)
}

// FieldDescriptor describes one readable colon path, the inferred value type,
// and the effective permission tokens at the owning store boundary.
type FieldDescriptor struct {
	Path       string
	Type       string
	Permission string
}

// DefaultSchemaGenerator returns the built-in descriptor-based generator.
func DefaultSchemaGenerator() SchemaGenerator {
	return descriptorGenerator{}
}

// Schema derives the descriptor document for the store's readable fields.
func (s *Store) Schema() (SchemaDocument, error) {
	return DefaultSchemaGenerator().Generate(s)
}

type descriptorGenerator struct{}

func (descriptorGenerator) Generate(store *Store) (SchemaDocument, error) {
	descriptors := deriveStoreDescriptors(store, "")
	if descriptors == nil {
		descriptors = []FieldDescriptor{}
	}
	return SchemaDocument{
		Format:   SchemaFormatDescriptors,
		Document: descriptors,
	}, nil
}

// deriveStoreDescriptors walks a store's readable fields. Child stores are
// recursed with their own permission gating; plain structures are walked
// without re-checks, mirroring path resolution. Lazy producers stay opaque.
func deriveStoreDescriptors(store *Store, prefix string) []FieldDescriptor {
	if store == nil {
		return nil
	}

	keys := make([]string, 0, len(store.fields))
	for key := range store.fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var fields []FieldDescriptor
	for _, key := range keys {
		if key == defaultPolicyField || !store.AllowedToRead(key) {
			continue
		}
		permission := joinPermissions(store.EffectivePermission(key))
		nextPrefix := joinSchemaPath(prefix, key)
		value := store.fields[key]
		switch typed := value.(type) {
		case *Store:
			fields = append(fields, deriveStoreDescriptors(typed, nextPrefix)...)
		case map[string]any:
			fields = append(fields, deriveValueDescriptors(typed, nextPrefix, permission)...)
		case Lazy, func() any:
			fields = append(fields, FieldDescriptor{
				Path:       nextPrefix,
				Type:       "lazy",
				Permission: permission,
			})
		default:
			fields = append(fields, FieldDescriptor{
				Path:       nextPrefix,
				Type:       schemaTypeName(typed),
				Permission: permission,
			})
		}
	}
	return fields
}

func deriveValueDescriptors(value any, prefix, permission string) []FieldDescriptor {
	switch typed := value.(type) {
	case map[string]any:
		if len(typed) == 0 {
			return []FieldDescriptor{{
				Path:       prefix,
				Type:       "map[string]any",
				Permission: permission,
			}}
		}
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		var fields []FieldDescriptor
		for _, key := range keys {
			fields = append(fields, deriveValueDescriptors(typed[key], joinSchemaPath(prefix, key), permission)...)
		}
		return fields
	case []any:
		elementType := "any"
		if len(typed) > 0 {
			elementType = schemaTypeName(typed[0])
		}
		return []FieldDescriptor{{
			Path:       prefix,
			Type:       "[]" + elementType,
			Permission: permission,
		}}
	default:
		return []FieldDescriptor{{
			Path:       prefix,
			Type:       schemaTypeName(typed),
			Permission: permission,
		}}
	}
}

func schemaTypeName(value any) string {
	if value == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", value)
}

func joinSchemaPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return prefix + PathSeparator + segment
}

func joinPermissions(tokens []Permission) string {
	parts := make([]string, 0, len(tokens))
	for _, token := range tokens {
		parts = append(parts, string(token))
	}
	return strings.Join(parts, ",")
}
