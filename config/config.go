// Package config loads the chain manager's tunables from a TOML file, with
// defaults matching the values every component falls back to when no file
// is given.
package config

import (
	"bufio"
	"os"
	"reflect"

	"github.com/naoina/toml"
)

// tomlSettings keeps TOML keys matching Go field names verbatim, so an
// unknown field is an error rather than a silent no-op.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
}

// StoreKind selects which chainstore.Store backend a binary constructs.
type StoreKind string

const (
	StoreMemory  StoreKind = "memory"
	StoreLevelDB StoreKind = "leveldb"
)

// StoreConfig configures the persistent chain store.
type StoreConfig struct {
	Kind    StoreKind
	Path    string
	Cache   int
	Handles int
}

// Config holds every tunable named in the chain manager's config surface.
type Config struct {
	Store StoreConfig

	Window                uint64
	TaskMRUSize           int
	ProcessLRUSize        int
	GasLimit              uint64
	GasPrice              uint64
	AvgTxGas              uint64
	BlockTimeSecs         int
	EpochLength           uint64
	ImportThrottleSecs    int
	ActorCallTimeoutSecs  int
}

// Default returns the config every binary falls back to absent a file,
// mirroring the tunable constants named in the chain manager's design.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Kind:    StoreMemory,
			Path:    "chaindata",
			Cache:   512,
			Handles: 256,
		},
		Window:                1000,
		TaskMRUSize:           10,
		ProcessLRUSize:        1000,
		GasLimit:              20_000_000,
		GasPrice:              0,
		AvgTxGas:              200_000,
		BlockTimeSecs:         15,
		EpochLength:           40_320,
		ImportThrottleSecs:    30,
		ActorCallTimeoutSecs:  25,
	}
}

// Load reads path as TOML over Default(), so a partial file only overrides
// the fields it sets.
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	if err := tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
