package slo

import (
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"

	"github.com/atarist-core/emucore/logger"
)

// Dashboard serves a live statsview board alongside the SLO sampler, for
// operator diagnostics. It is entirely optional: nothing in the engine
// depends on it running.
type Dashboard struct {
	mgr *statsview.ViewManager
}

// NewDashboard configures a statsview board listening on addr
// (host:port).
func NewDashboard(addr string) *Dashboard {
	viewer.SetConfiguration(viewer.WithAddr(addr))
	return &Dashboard{mgr: statsview.New()}
}

// Start serves the board until Stop. It runs the HTTP listener on its own
// goroutine and returns immediately.
func (d *Dashboard) Start() {
	go func() {
		if err := d.mgr.Start(); err != nil {
			logger.Logf(logger.Allow, "slo", "dashboard stopped: %v", err)
		}
	}()
}

// Stop shuts the board down.
func (d *Dashboard) Stop() {
	d.mgr.Stop()
}
