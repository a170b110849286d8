package snapshot

import (
	"github.com/atarist-core/emucore/curated"
)

// Compatibility rule ids, checked in this exact order. The first failure
// short-circuits the pipeline.
const (
	RuleSchema    = "RCOMP-01"
	RuleProfile   = "RCOMP-02"
	RuleEngineABI = "RCOMP-03"
	RuleModuleABI = "RCOMP-04"
)

func incompatible(ruleID, format string, args ...any) error {
	return curated.New(curated.CategorySnapshot, curated.CodeSnapshotIncompatible, false,
		"snapshot: "+format, args...).WithDetail("rule_id", ruleID)
}

// Validate runs the compatibility pipeline of a loaded record against the
// session's own identity: schema version, profile, engine ABI, then exact
// per-module ABI match.
func Validate(rec *Record, want Meta) error {
	if rec.Meta.SchemaVersion != want.SchemaVersion {
		return incompatible(RuleSchema, "schema version %d, engine expects %d",
			rec.Meta.SchemaVersion, want.SchemaVersion)
	}
	if rec.Meta.Profile != want.Profile {
		return incompatible(RuleProfile, "profile %q, session is %q",
			rec.Meta.Profile, want.Profile)
	}
	if rec.Meta.EngineABI != want.EngineABI {
		return incompatible(RuleEngineABI, "engine ABI %q, engine is %q",
			rec.Meta.EngineABI, want.EngineABI)
	}
	for name, abi := range want.ModuleABI {
		got, ok := rec.Meta.ModuleABI[name]
		if !ok {
			return incompatible(RuleModuleABI, "module %s missing from snapshot", name)
		}
		if got != abi {
			return incompatible(RuleModuleABI, "module %s ABI %q, engine has %q",
				name, got, abi)
		}
	}
	for name := range rec.Meta.ModuleABI {
		if _, ok := want.ModuleABI[name]; !ok {
			return incompatible(RuleModuleABI, "snapshot carries unknown module %s", name)
		}
	}
	return nil
}
