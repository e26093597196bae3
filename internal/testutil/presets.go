package testutil

import (
	"github.com/zjrosen/futari/internal/docstore"
	"github.com/zjrosen/futari/internal/pair"
	"github.com/zjrosen/futari/internal/registry"
)

// Keys used by the seeded preset, stable so tests can reference them.
const (
	KeyWork   registry.Key = "c_work"
	KeyGym    registry.Key = "c_gym"
	KeyEatOut registry.Key = "c_eatout"
)

// SeededPair returns a memory store holding a customized pair: both
// registries carry two entries, the work category is referenced by two
// schedules, and the eat-out status by one dinner entry.
func SeededPair(pairID pair.ID) *docstore.Memory {
	docs := docstore.NewMemory()

	NewRegistryDoc(registry.KindScheduleCategory).
		WithEntry(KeyWork, "仕事").
		WithEntry(KeyGym, "ジム").
		SeedInto(docs, pairID)
	NewRegistryDoc(registry.KindDinnerStatus).
		WithEntry(KeyEatOut, "外食").
		WithEntry("c_home", "おうち").
		SeedInto(docs, pairID)

	SeedReference(docs, pairID, registry.KindScheduleCategory, "sched-1", KeyWork)
	SeedReference(docs, pairID, registry.KindScheduleCategory, "sched-2", KeyWork)
	SeedReference(docs, pairID, registry.KindScheduleCategory, "sched-3", "")
	SeedReference(docs, pairID, registry.KindDinnerStatus, "dinner-1", KeyEatOut)

	return docs
}
