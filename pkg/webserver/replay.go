package webserver

import (
	"net/http"
	"time"

	"f1telemetryapi/pkg/caster"
	"f1telemetryapi/pkg/lifecycle"
	"f1telemetryapi/pkg/metrics"
	"f1telemetryapi/pkg/model"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const (
	frameSamples = "samples"
	frameEnd     = "end"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

type replayFrame struct {
	Type    string                  `json:"type"`
	Clock   float64                 `json:"clock"`
	Samples []model.TelemetrySample `json:"samples,omitempty"`
}

var frameCaster = caster.JSONCaster[replayFrame]{}

// replay streams the telemetry of one lap over a websocket. Every tick moves
// the replay clock forward by the configured interval and sends the samples
// whose time has been reached. An "end" frame closes the stream.
func (a *API) replay(w http.ResponseWriter, r *http.Request) {
	year, round, err := yearAndRound(r)
	if err != nil {
		a.badRequest(w, "replay", err)
		return
	}
	lapNumber, err := lapParam(r)
	if err != nil {
		a.badRequest(w, "replay", err)
		return
	}
	code := mux.Vars(r)["driver_code"]

	scope := lifecycle.NewScope("replay", a.logger)
	defer scope.Release()

	samples, err := a.LapSamples(r.Context(), scope, year, round, a.session(r), code, lapNumber)
	if err != nil {
		scope.Logger.WithError(err).WithField("driver", code).Error("replay query failed")
		a.fail(w, "replay", telemetryFailure)
		return
	}
	// the provider tables are not needed while streaming
	scope.Release()

	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.WithError(err).Warn("replay upgrade failed")
		return
	}
	defer c.Close()
	metrics.Requests.WithLabelValues("replay", "ok").Inc()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	interval := a.replayInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	clock := 0.0
	next := 0
	for next < len(samples) {
		select {
		case <-t.C:
			clock += interval.Seconds()
			start := next
			for next < len(samples) && samples[next].Time <= clock {
				next++
			}
			if start == next {
				continue
			}
			if err := a.writeFrame(c, replayFrame{Type: frameSamples, Clock: clock, Samples: samples[start:next]}); err != nil {
				return
			}
		case <-closed:
			a.logger.Debug("replay client went away")
			return
		}
	}

	if err := a.writeFrame(c, replayFrame{Type: frameEnd, Clock: clock}); err != nil {
		return
	}
	_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (a *API) writeFrame(c *websocket.Conn, frame replayFrame) error {
	data, err := frameCaster.To(frame)
	if err != nil {
		a.logger.WithError(err).Error("replay marshal failed")
		return err
	}
	if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
		a.logger.WithError(err).Debug("replay write failed")
		return err
	}
	return nil
}
