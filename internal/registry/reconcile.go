package registry

import (
	"time"

	"github.com/zjrosen/futari/internal/docstore"
)

// Persisted document fields.
const (
	fieldLabels    = "labels"
	fieldOrder     = "_order"
	fieldUpdatedAt = "updatedAt"
)

// Reconcile normalizes whatever is (or is not) persisted into a
// well-formed Registry. It never fails: an absent document yields a
// copy of the compiled-in default, and a malformed one degrades
// field by field.
//
// Shapes handled:
//   - no document: the default registry for the kind.
//   - labels under an explicit "labels" map (current shape).
//   - labels as dynamic top-level fields next to "_order"/"updatedAt"
//     (legacy shape written by early app versions).
//   - "_order" missing, not a string list, containing unknown keys, or
//     containing duplicates: the order is rebuilt from the default
//     order restricted to the present keys, with leftover keys
//     appended deterministically.
//
// Reconcile is pure and idempotent: reconciling an already-well-formed
// document yields the same Registry.
func Reconcile(kind Kind, doc docstore.Document) Registry {
	def := Default(kind)
	if !doc.Exists {
		return def
	}

	// Defaults apply only when no document exists. An existing document
	// with no labels is a registry the pair emptied on purpose.
	labels := parseLabels(doc.Fields)

	keys := make(map[Key]bool, len(labels))
	for k := range labels {
		keys[k] = true
	}

	order := normalizeOrder(keys, parseOrder(doc.Fields[fieldOrder]), def.Order)

	return Registry{
		Kind:      kind,
		Labels:    labels,
		Order:     order,
		UpdatedAt: parseTime(doc.Fields[fieldUpdatedAt]),
	}
}

// parseLabels extracts the key→label map, preferring the explicit
// "labels" field and falling back to the legacy dynamic-field shape.
func parseLabels(fields docstore.Fields) map[Key]string {
	labels := make(map[Key]string)

	if raw, ok := fields[fieldLabels]; ok {
		var m map[string]any
		switch val := raw.(type) {
		case docstore.Fields:
			m = val
		case map[string]any:
			m = val
		}
		for k, v := range m {
			if s, ok := v.(string); ok {
				labels[Key(k)] = s
			}
		}
		return labels
	}

	// Legacy shape: every top-level string field except the metadata
	// fields is a label.
	for name, value := range fields {
		if name == fieldOrder || name == fieldUpdatedAt {
			continue
		}
		if s, ok := value.(string); ok {
			labels[Key(name)] = s
		}
	}
	return labels
}

// parseOrder tolerates both []string and []any encodings; anything
// else yields nil and the caller rebuilds the order from defaults.
func parseOrder(raw any) []Key {
	switch val := raw.(type) {
	case []string:
		order := make([]Key, len(val))
		for i, s := range val {
			order[i] = Key(s)
		}
		return order
	case []any:
		var order []Key
		for _, v := range val {
			if s, ok := v.(string); ok {
				order = append(order, Key(s))
			}
		}
		return order
	default:
		return nil
	}
}

func parseTime(raw any) time.Time {
	if t, ok := raw.(time.Time); ok {
		return t
	}
	return time.Time{}
}
