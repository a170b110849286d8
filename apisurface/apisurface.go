// Package apisurface is the canonical registry of the endpoint bindings
// the engine contracts to its transport collaborator. The engine never
// listens on a socket itself; the transport asks this package for a
// validated router and mounts its own handlers onto the named bindings.
package apisurface

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/atarist-core/emucore/curated"
)

// Prefix is the version path prefix every binding lives under.
const Prefix = "/api/v2"

// Binding is one named endpoint contract.
type Binding struct {
	Name   string
	Method string
	Path   string // relative to Prefix
}

// Bindings enumerates the full endpoint surface: lifecycle, media, debug
// clock, snapshot, mapping, inspection, and SLO.
func Bindings() []Binding {
	return []Binding{
		// lifecycle
		{Name: "session.start", Method: http.MethodPost, Path: "/session/start"},
		{Name: "session.pause", Method: http.MethodPost, Path: "/session/pause"},
		{Name: "session.resume", Method: http.MethodPost, Path: "/session/resume"},
		{Name: "session.reset", Method: http.MethodPost, Path: "/session/reset"},
		{Name: "session.stop", Method: http.MethodPost, Path: "/session/stop"},
		{Name: "session.status", Method: http.MethodGet, Path: "/session/status"},

		// suspend/restore and snapshots
		{Name: "session.suspend_save", Method: http.MethodPost, Path: "/session/suspend-save"},
		{Name: "session.restore_resume", Method: http.MethodPost, Path: "/session/restore-resume"},
		{Name: "snapshot.list", Method: http.MethodGet, Path: "/snapshots"},
		{Name: "snapshot.save", Method: http.MethodPost, Path: "/snapshots"},
		{Name: "snapshot.get", Method: http.MethodGet, Path: "/snapshots/{snapshot_id}"},

		// media
		{Name: "media.attach", Method: http.MethodPost, Path: "/media/{slot}/attach"},
		{Name: "media.eject", Method: http.MethodPost, Path: "/media/{slot}/eject"},
		{Name: "media.bindings", Method: http.MethodGet, Path: "/media"},

		// debug clock
		{Name: "debug.clock_mode", Method: http.MethodPost, Path: "/debug/clock-mode"},
		{Name: "debug.step", Method: http.MethodPost, Path: "/debug/step"},

		// input mapping and policy
		{Name: "input.mapping.list", Method: http.MethodGet, Path: "/input/mappings/{machine}"},
		{Name: "input.mapping.get", Method: http.MethodGet, Path: "/input/mappings/{machine}/{mapping_profile_id}"},
		{Name: "input.mapping.create", Method: http.MethodPost, Path: "/input/mappings/{machine}"},
		{Name: "input.mapping.update", Method: http.MethodPatch, Path: "/input/mappings/{machine}/{mapping_profile_id}"},
		{Name: "input.mapping.delete", Method: http.MethodDelete, Path: "/input/mappings/{machine}/{mapping_profile_id}"},
		{Name: "input.mapping.apply", Method: http.MethodPost, Path: "/input/mappings/{machine}/{mapping_profile_id}/apply"},
		{Name: "input.policy.get", Method: http.MethodGet, Path: "/input/policy/{browser_session}"},
		{Name: "input.policy.set", Method: http.MethodPost, Path: "/input/policy/{browser_session}"},
		{Name: "input.event", Method: http.MethodPost, Path: "/input/events/{browser_session}"},

		// inspection
		{Name: "inspect.registers", Method: http.MethodGet, Path: "/inspect/registers"},
		{Name: "inspect.bus", Method: http.MethodGet, Path: "/inspect/bus"},
		{Name: "inspect.memory", Method: http.MethodGet, Path: "/inspect/memory"},

		// SLO
		{Name: "slo.config", Method: http.MethodGet, Path: "/slo/config"},
		{Name: "slo.samples", Method: http.MethodGet, Path: "/slo/samples"},
		{Name: "slo.thresholds", Method: http.MethodPut, Path: "/slo/thresholds"},
		{Name: "slo.alarms", Method: http.MethodGet, Path: "/slo/alarms"},
	}
}

// Router mounts the transport's handlers onto the bindings and returns the
// configured mux router. Every binding must be covered and every handler
// must name a binding; anything else is a wiring bug surfaced at startup.
// A request to a bound path with a method the binding does not name is
// answered 405 Method Not Allowed.
func Router(handlers map[string]http.Handler) (*mux.Router, error) {
	bindings := Bindings()

	known := make(map[string]bool, len(bindings))
	for _, b := range bindings {
		known[b.Name] = true
	}
	for name := range handlers {
		if !known[name] {
			return nil, curated.New(curated.CategoryInternal, curated.CodeInternalError, false,
				"apisurface: handler for unknown binding %q", name)
		}
	}

	r := mux.NewRouter()
	sub := r.PathPrefix(Prefix).Subrouter()
	sub.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
	for _, b := range bindings {
		h, ok := handlers[b.Name]
		if !ok {
			return nil, curated.New(curated.CategoryInternal, curated.CodeInternalError, false,
				"apisurface: no handler mounted for binding %q", b.Name)
		}
		sub.Handle(b.Path, h).Methods(b.Method).Name(b.Name)
	}
	return r, nil
}
