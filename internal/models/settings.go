package models

import "encoding/json"

// OperatorMode controls how much human approval content needs before going live.
type OperatorMode string

const (
	ModeManual     OperatorMode = "manual"
	ModeAssisted   OperatorMode = "assisted"
	ModeAutonomous OperatorMode = "autonomous"
)

// Valid reports whether the mode is one of the closed set.
func (m OperatorMode) Valid() bool {
	switch m {
	case ModeManual, ModeAssisted, ModeAutonomous:
		return true
	}
	return false
}

// Content modules that may carry a mode override.
const (
	ModuleAssets  = "assets"
	ModuleMockups = "mockups"
	ModulePins    = "pins"
)

// OperatorSettings is the account-level approval policy, read-only here.
type OperatorSettings struct {
	AccountID        string       `db:"account_id" json:"accountId"`
	GlobalMode       OperatorMode `db:"global_mode" json:"globalMode"`
	ModuleOverrides  []byte       `db:"module_overrides" json:"-"`
	QualityThreshold float64      `db:"quality_threshold" json:"qualityThreshold"`
}

// EffectiveMode resolves the mode for a module: override first, then global,
// then assisted as the safe default.
func (s *OperatorSettings) EffectiveMode(module string) OperatorMode {
	if s == nil {
		return ModeAssisted
	}
	if len(s.ModuleOverrides) > 0 {
		overrides := map[string]OperatorMode{}
		if err := json.Unmarshal(s.ModuleOverrides, &overrides); err == nil {
			if mode, ok := overrides[module]; ok && mode.Valid() {
				return mode
			}
		}
	}
	if s.GlobalMode.Valid() {
		return s.GlobalMode
	}
	return ModeAssisted
}
