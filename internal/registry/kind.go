package registry

// Kind selects one of the pair's label vocabularies. Each kind has its
// own settings document, its own referencing collection, and its own
// compiled-in defaults.
type Kind string

const (
	// KindScheduleCategory is the vocabulary of schedule categories.
	// Schedules reference it through their "category" field.
	KindScheduleCategory Kind = "scheduleCategories"

	// KindDinnerStatus is the vocabulary of dinner-status options.
	// Daily dinner-status entries reference it through their "status"
	// field.
	KindDinnerStatus Kind = "dinnerStatuses"
)

// kindInfo describes the storage layout and bounds of one kind.
type kindInfo struct {
	settingsDoc string // document name under pairs/{pair}/settings
	collection  string // referencing collection under pairs/{pair}
	refField    string // reference field on records in that collection
	minEntries  int
	maxEntries  int
	placeholder string // label substituted when adding with a blank label
}

var kinds = map[Kind]kindInfo{
	KindScheduleCategory: {
		settingsDoc: "scheduleCategories",
		collection:  "schedules",
		refField:    "category",
		minEntries:  0,
		maxEntries:  12,
		placeholder: "新しいカテゴリ",
	},
	KindDinnerStatus: {
		settingsDoc: "dinnerStatuses",
		collection:  "dinnerStatus",
		refField:    "status",
		minEntries:  0,
		maxEntries:  12,
		placeholder: "新しいステータス",
	},
}

// Kinds returns all known registry kinds in a stable order.
func Kinds() []Kind {
	return []Kind{KindScheduleCategory, KindDinnerStatus}
}

func (k Kind) info() kindInfo {
	info, ok := kinds[k]
	if !ok {
		panic("registry: unknown kind " + string(k))
	}
	return info
}

// SettingsDoc is the settings document name holding this kind's registry.
func (k Kind) SettingsDoc() string { return k.info().settingsDoc }

// Collection is the pair-scoped collection whose records reference this
// kind's keys.
func (k Kind) Collection() string { return k.info().collection }

// ReferenceField is the field on referencing records holding a key or nil.
func (k Kind) ReferenceField() string { return k.info().refField }

// MinEntries is the advisory lower bound on registry size.
func (k Kind) MinEntries() int { return k.info().minEntries }

// MaxEntries is the advisory upper bound on registry size.
func (k Kind) MaxEntries() int { return k.info().maxEntries }

// Placeholder is the label used when an entry is added with a blank label.
func (k Kind) Placeholder() string { return k.info().placeholder }
