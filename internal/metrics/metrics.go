// Package metrics exposes the landmark pipeline's running state as
// Prometheus metrics: current FPS and per-stage timer averages (fed by
// a timing.FpsCounter's tick callback), frames processed, and tracker
// state-machine resets.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gophi/landmark/internal/timing"
)

// Recorder owns the pipeline's Prometheus collectors. Construct one per
// process with NewRecorder and wire its OnTick method into a
// timing.FpsCounter.
type Recorder struct {
	fps             prometheus.Gauge
	stageDuration   *prometheus.HistogramVec
	framesProcessed prometheus.Counter
	trackerResets   *prometheus.CounterVec
}

// NewRecorder registers the pipeline's collectors against reg and
// returns a Recorder ready to use. Pass prometheus.DefaultRegisterer to
// expose metrics on the default /metrics handler, or a fresh
// prometheus.NewRegistry() in tests.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		fps: factory.NewGauge(prometheus.GaugeOpts{
			Name: "landmark_pipeline_fps",
			Help: "Current processing rate of the landmark pipeline, in frames per second.",
		}),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "landmark_pipeline_stage_duration_seconds",
				Help:    "Per-call duration of a named pipeline stage (resize, infer, nms, ...).",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"stage"},
		),
		framesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "landmark_pipeline_frames_processed_total",
			Help: "Total number of input frames run through the pipeline.",
		}),
		trackerResets: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "landmark_pipeline_tracker_resets_total",
				Help: "Total number of times a tracker dropped back to Untracked, by reason.",
			},
			[]string{"reason"},
		),
	}
}

// OnTick matches timing.FpsCounter's onTick signature: it records the
// rolled-over fps value and each timer's average call duration,
// labeled by the timer's own Label.
func (r *Recorder) OnTick(fps float64, timers []*timing.Timer) {
	r.fps.Set(fps)
	for _, t := range timers {
		r.stageDuration.WithLabelValues(t.Label()).Observe(t.Average().Seconds())
	}
}

// RecordFrameProcessed increments the total frame counter. Call it once
// per input frame the pipeline completes, successful or not.
func (r *Recorder) RecordFrameProcessed() {
	r.framesProcessed.Inc()
}

// RecordTrackerReset increments the tracker-reset counter for the given
// reason (e.g. "low_confidence", "roi_out_of_bounds").
func (r *Recorder) RecordTrackerReset(reason string) {
	r.trackerResets.WithLabelValues(reason).Inc()
}
