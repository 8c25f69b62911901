package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	GridUnit     float64 `yaml:"grid_unit"`
	MaxPieces    int     `yaml:"max_pieces"`
	MaxUndoDepth int     `yaml:"max_undo_depth"`
	MaxGroupSize int     `yaml:"max_group_size"`

	AutosaveEverySec int `yaml:"autosave_every_sec"`

	RateLimits RateLimits `yaml:"rate_limits"`
}

type RateLimits struct {
	CmdWindowMs int `yaml:"cmd_window_ms"`
	CmdMax      int `yaml:"cmd_max"`
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.applyDefaults()
	return t, nil
}

// Default returns the tuning used when no tuning.yaml is present.
func Default() Tuning {
	var t Tuning
	t.applyDefaults()
	return t
}

func (t *Tuning) applyDefaults() {
	if t.ProtocolVersion == "" {
		t.ProtocolVersion = "1.0"
	}
	if t.GridUnit <= 0 {
		t.GridUnit = 1.0
	}
	if t.MaxPieces <= 0 {
		t.MaxPieces = 20000
	}
	if t.MaxUndoDepth <= 0 {
		t.MaxUndoDepth = 256
	}
	if t.MaxGroupSize <= 0 {
		t.MaxGroupSize = 512
	}
	if t.AutosaveEverySec <= 0 {
		t.AutosaveEverySec = 60
	}
	if t.RateLimits.CmdWindowMs <= 0 {
		t.RateLimits.CmdWindowMs = 1000
	}
	if t.RateLimits.CmdMax <= 0 {
		t.RateLimits.CmdMax = 120
	}
}
