package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/gophi/landmark/internal/config"
	"github.com/gophi/landmark/internal/detect"
	"github.com/gophi/landmark/internal/metrics"
	"github.com/gophi/landmark/internal/timing"
	"github.com/gophi/landmark/internal/track"
	"github.com/gophi/landmark/internal/videosrc"
)

const (
	modeFace = "face"
	modeHand = "hand"
)

var runFlags struct {
	input       string
	mode        string
	variant     string
	fps         float64
	metricsAddr string
	loop        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the detect-then-track pipeline over a frame source",
	Long: `Reads frames from --input (a directory of still images played back
at --fps, or a single animated GIF file) and runs the face or hand
detect-then-track pipeline over each frame, showing outlines of the
tracked landmarks through the GUI bridge.`,
	SilenceUsage: true,
	RunE:         runRun,
}

func init() {
	runCmd.Flags().StringVar(&runFlags.input, "input", "", "directory of images, or path to a .gif file (required)")
	runCmd.Flags().StringVar(&runFlags.mode, "mode", modeFace, "what to track: face or hand")
	runCmd.Flags().StringVar(&runFlags.variant, "variant", "", "network variant override (short_range/full_range for face, lite/full for hand)")
	runCmd.Flags().Float64Var(&runFlags.fps, "fps", 30, "playback rate for a directory frame source")
	runCmd.Flags().StringVar(&runFlags.metricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9090)")
	runCmd.Flags().BoolVar(&runFlags.loop, "loop", false, "loop the frame source once exhausted")
	_ = runCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	if runFlags.mode != modeFace && runFlags.mode != modeHand {
		return fmt.Errorf("invalid --mode %q: must be %q or %q", runFlags.mode, modeFace, modeHand)
	}

	var recorder *metrics.Recorder
	if runFlags.metricsAddr != "" {
		recorder = startMetricsServer(runFlags.metricsAddr)
	}

	source, err := openSource(runFlags.input, runFlags.fps)
	if err != nil {
		return fmt.Errorf("opening frame source: %w", err)
	}
	defer func() { _ = source.Close() }()

	if runFlags.mode == modeFace {
		return runFace(cfg, source, recorder)
	}
	return runHand(cfg, source, recorder)
}

// startMetricsServer builds a fresh registry (rather than the global
// DefaultRegisterer) so a second `run` invocation in the same process,
// e.g. from a test, never collides on metric registration.
func startMetricsServer(addr string) *metrics.Recorder {
	reg := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		slog.Info("serving metrics", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server stopped", "error", err)
		}
	}()

	return recorder
}

// openSource picks a FrameSource implementation based on whether input
// names a directory (played back at fps) or a .gif file.
func openSource(input string, fps float64) (videosrc.FrameSource, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return videosrc.OpenFileSequence(input, fps)
	}
	if strings.EqualFold(filepath.Ext(input), ".gif") {
		return videosrc.OpenGifSequenceFile(input)
	}
	return nil, fmt.Errorf("unsupported input %q: must be a directory or a .gif file", input)
}

func runFace(cfg *config.Config, source videosrc.FrameSource, recorder *metrics.Recorder) error {
	name := cfg.Face.Variant
	if runFlags.variant != "" {
		name = runFlags.variant
	}
	variant := detect.ShortRangeFaceNetwork()
	if name == "full_range" {
		variant = detect.FullRangeFaceNetwork()
	}

	detector, landmarker, err := buildFacePipeline(cfg, variant)
	if err != nil {
		return err
	}

	tracker := track.NewLandmarkTracker(landmarker)
	configureTracker(cfg, tracker.SetConfidenceThreshold, tracker.SetROIPadding)

	blitTimer := timing.NewTimer("blit")
	fpsCounter := timing.NewFpsCounter(time.Second, tickHandler(recorder))

	return runLoop(source, func(frame videosrc.Frame) error {
		if tracker.TrackedFace() == nil {
			best, ok, derr := detectBest(detector, frame)
			if derr != nil {
				return derr
			}
			if !ok {
				recordReset(recorder, "no_detection")
				return nil
			}
			showAcquisitionOverlay("face-acquire", frame.Image, best.LooseRotatedRect())
			tracker.SetTrackedFace(track.NewTrackedFace(best.BoundingRectLoose(), best.RotationRadians()))
		}

		var res *track.TrackResult
		var trackErr error
		blitTimer.Time(func() { res, trackErr = tracker.Track(frame.Image) })
		if trackErr != nil {
			return trackErr
		}
		if res == nil {
			recordReset(recorder, "confidence_dropped")
			return nil
		}
		recordFrame(recorder)

		tickFPS(fpsCounter, detector, landmarker.Timers(), blitTimer)
		showFaceOverlay(res)
		return nil
	})
}

func runHand(cfg *config.Config, source videosrc.FrameSource, recorder *metrics.Recorder) error {
	name := cfg.Hand.Variant
	if runFlags.variant != "" {
		name = runFlags.variant
	}
	variant := detect.LiteHandNetwork()
	if name == "full" {
		variant = detect.FullHandNetwork()
	}

	detector, landmarker, err := buildHandPipeline(cfg, variant)
	if err != nil {
		return err
	}

	tracker := track.NewHandTracker(landmarker)
	configureTracker(cfg, tracker.SetConfidenceThreshold, tracker.SetROIPadding)

	blitTimer := timing.NewTimer("blit")
	fpsCounter := timing.NewFpsCounter(time.Second, tickHandler(recorder))

	return runLoop(source, func(frame videosrc.Frame) error {
		if tracker.TrackedHand() == nil {
			best, ok, derr := detectBest(detector, frame)
			if derr != nil {
				return derr
			}
			if !ok {
				recordReset(recorder, "no_detection")
				return nil
			}
			showAcquisitionOverlay("hand-acquire", frame.Image, best.LooseRotatedRect())
			tracker.SetTrackedHand(track.NewTrackedHand(best.BoundingRectLoose()))
		}

		var res *track.HandTrackResult
		var trackErr error
		blitTimer.Time(func() { res, trackErr = tracker.Track(frame.Image) })
		if trackErr != nil {
			return trackErr
		}
		if res == nil {
			recordReset(recorder, "confidence_dropped")
			return nil
		}
		recordFrame(recorder)

		tickFPS(fpsCounter, detector, landmarker.Timers(), blitTimer)
		showHandOverlay(res)
		return nil
	})
}

func configureTracker(cfg *config.Config, setConfidence func(float32), setPadding func(float64, float64, float64, float64)) {
	setConfidence(cfg.Tracker.FaceConfidenceThresh)
	pad := float64(cfg.Tracker.ROIPadding)
	setPadding(pad, pad, pad, pad)
}

func detectBest(detector *detect.Detector, frame videosrc.Frame) (detect.Detection, bool, error) {
	dets, err := detector.Detect(frame.Image)
	if err != nil {
		return detect.Detection{}, false, err
	}
	best, ok := bestDetection(dets)
	return best, ok, nil
}

// bestDetection picks the highest-confidence detection, mirroring a
// single-subject tracking seed.
func bestDetection(dets []detect.Detection) (detect.Detection, bool) {
	if len(dets) == 0 {
		return detect.Detection{}, false
	}
	best := dets[0]
	for _, d := range dets[1:] {
		if d.Confidence() > best.Confidence() {
			best = d
		}
	}
	return best, true
}

func tickHandler(recorder *metrics.Recorder) func(float64, []*timing.Timer) {
	return func(fps float64, timers []*timing.Timer) {
		if recorder != nil {
			recorder.OnTick(fps, timers)
		}
		slog.Info("pipeline tick", "fps", fps)
	}
}

func tickFPS(counter *timing.FpsCounter, detector *detect.Detector, landmarkTimers []*timing.Timer, blitTimer *timing.Timer) {
	timers := append([]*timing.Timer{detector.ResizeTimer, detector.InferTimer, detector.NMSTimer}, landmarkTimers...)
	timers = append(timers, blitTimer)
	counter.TickWith(timers...)
}

func recordReset(recorder *metrics.Recorder, reason string) {
	if recorder != nil {
		recorder.RecordTrackerReset(reason)
	}
}

func recordFrame(recorder *metrics.Recorder) {
	if recorder != nil {
		recorder.RecordFrameProcessed()
	}
}

// runLoop feeds frames from source into process until the source is
// exhausted (or, with --loop, forever, reopening --input each time the
// source runs out, since neither FrameSource rewinds).
func runLoop(source videosrc.FrameSource, process func(videosrc.Frame) error) error {
	for {
		frame, err := source.Next()
		if errors.Is(err, videosrc.ErrExhausted) {
			if !runFlags.loop {
				return nil
			}
			_ = source.Close()
			if source, err = openSource(runFlags.input, runFlags.fps); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		if err := process(frame); err != nil {
			return err
		}
	}
}
