// Package version records the engine's release and ABI identity.
package version

// Version is the release number of the engine.
const Version = "0.3.0"

// EngineABI is the engine compatibility identifier recorded in snapshot
// headers. It changes only when the snapshot wire format or a component
// state block changes shape.
const EngineABI = "emucore/1"
