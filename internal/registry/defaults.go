package registry

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// defaultsFile is the root structure of defaults.yaml.
type defaultsFile struct {
	Defaults []defaultDef `yaml:"defaults"`
}

// defaultDef defines the compiled-in registry for one kind.
type defaultDef struct {
	Kind    Kind       `yaml:"kind"`
	Entries []entryDef `yaml:"entries"`
}

type entryDef struct {
	Key   Key    `yaml:"key"`
	Label string `yaml:"label"`
}

var (
	defaultsOnce sync.Once
	defaults     map[Kind]Registry
)

func loadDefaults() map[Kind]Registry {
	defaultsOnce.Do(func() {
		var file defaultsFile
		if err := yaml.Unmarshal(defaultsYAML, &file); err != nil {
			panic(fmt.Sprintf("registry: parse defaults.yaml: %v", err))
		}

		defaults = make(map[Kind]Registry, len(file.Defaults))
		for _, def := range file.Defaults {
			labels := make(map[Key]string, len(def.Entries))
			order := make([]Key, 0, len(def.Entries))
			for _, e := range def.Entries {
				labels[e.Key] = e.Label
				order = append(order, e.Key)
			}
			defaults[def.Kind] = Registry{Kind: def.Kind, Labels: labels, Order: order}
		}

		for _, kind := range Kinds() {
			if _, ok := defaults[kind]; !ok {
				panic(fmt.Sprintf("registry: defaults.yaml has no entry for kind %s", kind))
			}
		}
	})
	return defaults
}

// Default returns a copy of the compiled-in registry for kind. It is
// used whenever no document is persisted for a pair and as the order
// template when a persisted document lacks a usable order.
func Default(kind Kind) Registry {
	return loadDefaults()[kind].Clone()
}
