package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/futari/internal/docstore"
)

// persistedDoc builds the document shape the store writes for reg.
func persistedDoc(reg Registry) docstore.Document {
	return docstore.Document{
		Path:   "pairs/p1/settings/" + reg.Kind.SettingsDoc(),
		Exists: true,
		Fields: docstore.Fields{
			"labels":    labelsField(reg.Labels),
			"_order":    orderField(reg.Order),
			"updatedAt": reg.UpdatedAt,
		},
	}
}

func TestReconcile_AbsentDocumentYieldsDefaults(t *testing.T) {
	reg := Reconcile(KindScheduleCategory, docstore.Document{Exists: false})

	require.Equal(t, 6, reg.Len())
	require.Equal(t,
		[]Key{"remote", "office", "business_trip", "vacation", "outing", "other"},
		reg.Order)
	require.Equal(t, "在宅勤務", reg.Labels["remote"])
	require.Equal(t, "その他", reg.Labels["other"])
}

func TestReconcile_DinnerStatusDefaults(t *testing.T) {
	reg := Reconcile(KindDinnerStatus, docstore.Document{Exists: false})

	require.Equal(t, 4, reg.Len())
	require.Equal(t, []Key{"alone", "cooking", "cooking_together", "undecided"}, reg.Order)
	require.Equal(t, "未定", reg.Labels["undecided"])
}

func TestReconcile_DefaultsAreCopies(t *testing.T) {
	a := Reconcile(KindScheduleCategory, docstore.Document{})
	a.Labels["remote"] = "mutated"
	a.Order[0] = "mutated"

	b := Reconcile(KindScheduleCategory, docstore.Document{})
	require.Equal(t, "在宅勤務", b.Labels["remote"])
	require.Equal(t, Key("remote"), b.Order[0])
}

func TestReconcile_WellFormedDocumentUnchanged(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	reg := Registry{
		Kind:      KindScheduleCategory,
		Labels:    map[Key]string{"remote": "WFH", "custom_1": "Gym"},
		Order:     []Key{"custom_1", "remote"},
		UpdatedAt: now,
	}

	got := Reconcile(KindScheduleCategory, persistedDoc(reg))
	require.Equal(t, reg.Labels, got.Labels)
	require.Equal(t, reg.Order, got.Order)
	require.Equal(t, now, got.UpdatedAt)
}

func TestReconcile_MissingOrderUsesDefaultOrder(t *testing.T) {
	doc := docstore.Document{
		Exists: true,
		Fields: docstore.Fields{
			"labels": map[string]any{
				"office": "出社",
				"remote": "在宅勤務",
				"custom": "Gym",
			},
		},
	}

	reg := Reconcile(KindScheduleCategory, doc)
	// Default order restricted to present keys, then leftovers sorted.
	require.Equal(t, []Key{"remote", "office", "custom"}, reg.Order)
}

func TestReconcile_OrderWithUnknownKeysFiltered(t *testing.T) {
	doc := docstore.Document{
		Exists: true,
		Fields: docstore.Fields{
			"labels": map[string]any{"remote": "在宅勤務", "office": "出社"},
			"_order": []string{"office", "ghost", "remote"},
		},
	}

	reg := Reconcile(KindScheduleCategory, doc)
	require.Equal(t, []Key{"office", "remote"}, reg.Order)
}

func TestReconcile_KeysMissingFromOrderAppended(t *testing.T) {
	doc := docstore.Document{
		Exists: true,
		Fields: docstore.Fields{
			"labels": map[string]any{"remote": "在宅勤務", "office": "出社", "zcustom": "Gym"},
			"_order": []string{"office"},
		},
	}

	reg := Reconcile(KindScheduleCategory, doc)
	require.Equal(t, []Key{"office", "remote", "zcustom"}, reg.Order)
}

func TestReconcile_DuplicateOrderEntriesDropped(t *testing.T) {
	doc := docstore.Document{
		Exists: true,
		Fields: docstore.Fields{
			"labels": map[string]any{"remote": "在宅勤務", "office": "出社"},
			"_order": []string{"remote", "remote", "office"},
		},
	}

	reg := Reconcile(KindScheduleCategory, doc)
	require.Equal(t, []Key{"remote", "office"}, reg.Order)
}

func TestReconcile_LegacyDynamicFieldShape(t *testing.T) {
	// Early app versions stored labels as top-level document fields
	// next to _order and updatedAt.
	doc := docstore.Document{
		Exists: true,
		Fields: docstore.Fields{
			"remote":    "在宅勤務",
			"office":    "出社",
			"_order":    []any{"office", "remote"},
			"updatedAt": time.Now(),
		},
	}

	reg := Reconcile(KindScheduleCategory, doc)
	require.Equal(t, map[Key]string{"remote": "在宅勤務", "office": "出社"}, reg.Labels)
	require.Equal(t, []Key{"office", "remote"}, reg.Order)
}

func TestReconcile_ExistingEmptyDocumentStaysEmpty(t *testing.T) {
	// A pair that deleted every entry gets an empty registry back, not
	// resurrected defaults.
	doc := docstore.Document{
		Exists: true,
		Fields: docstore.Fields{
			"labels":    map[string]any{},
			"_order":    []string{},
			"updatedAt": time.Now(),
		},
	}

	reg := Reconcile(KindScheduleCategory, doc)
	require.Equal(t, 0, reg.Len())
	require.Empty(t, reg.Order)
}

func TestReconcile_GarbageOrderTypeRebuilt(t *testing.T) {
	doc := docstore.Document{
		Exists: true,
		Fields: docstore.Fields{
			"labels": map[string]any{"remote": "在宅勤務"},
			"_order": 42,
		},
	}

	reg := Reconcile(KindScheduleCategory, doc)
	require.Equal(t, []Key{"remote"}, reg.Order)
}

// TestReconcile_OrderIsAlwaysPermutation is a property-based test: for
// any document shape, the reconciled order is an exact permutation of
// the label key set, and reconciling twice is a no-op.
func TestReconcile_OrderIsAlwaysPermutation(t *testing.T) {
	rapid.Check(t, func(r *rapid.T) {
		keyGen := rapid.StringMatching(`[a-z_]{1,12}`)

		labels := make(map[string]any)
		for _, k := range rapid.SliceOfN(keyGen, 0, 15).Draw(r, "labelKeys") {
			labels[k] = rapid.StringN(0, 10, 30).Draw(r, "label")
		}
		order := rapid.SliceOfN(keyGen, 0, 20).Draw(r, "order")

		doc := docstore.Document{
			Exists: rapid.Bool().Draw(r, "exists"),
			Fields: docstore.Fields{
				"labels": labels,
				"_order": order,
			},
		}

		reg := Reconcile(KindScheduleCategory, doc)

		// Permutation invariant: no duplicates, no unknown keys, no
		// omissions.
		require.True(r, reg.consistent())
		require.Len(r, reg.Order, len(reg.Labels))
		seen := make(map[Key]bool)
		for _, k := range reg.Order {
			require.False(r, seen[k], "duplicate key %s in order", k)
			require.Contains(r, reg.Labels, k)
			seen[k] = true
		}

		// Idempotence: a well-formed document reconciles to itself.
		again := Reconcile(KindScheduleCategory, persistedDoc(reg))
		require.Equal(r, reg.Labels, again.Labels)
		require.Equal(r, reg.Order, again.Order)
	})
}
