// Package gui implements a minimal, fire-and-forget debug display: a
// single ShowImage(key, image) call per frame, backed by one
// lazily-started background goroutine per key. Each key keeps only the
// most recently shown frame — a slow renderer (or no renderer at all)
// never makes ShowImage block or builds up a backlog, it just drops
// intermediate frames.
package gui

import (
	"log/slog"
	"sync"

	"github.com/gophi/landmark/internal/image"
)

// Sink renders one key's latest frame. Render is called from a
// per-key goroutine: implementations that touch a single-threaded
// resource (a native window, a GPU context) must do their own
// synchronization if more than one key is in use.
type Sink interface {
	Render(key string, img *image.Image)
}

// SinkFunc adapts a plain function to a Sink.
type SinkFunc func(key string, img *image.Image)

// Render calls f.
func (f SinkFunc) Render(key string, img *image.Image) { f(key, img) }

type logSink struct{}

func (logSink) Render(key string, img *image.Image) {
	slog.Debug("gui: frame ready", "key", key, "resolution", img.Resolution())
}

var (
	configMu      sync.Mutex
	configuredSink Sink = logSink{}

	startOnce sync.Once
	disp      *dispatcher
)

// SetSink overrides the sink used to render frames. It only takes
// effect before the first call to ShowImage in the process's lifetime;
// the dispatcher, and the sink it renders with, are started once and
// reused for every subsequent call.
func SetSink(sink Sink) {
	configMu.Lock()
	defer configMu.Unlock()
	configuredSink = sink
}

func getDispatcher() *dispatcher {
	startOnce.Do(func() {
		configMu.Lock()
		sink := configuredSink
		configMu.Unlock()
		disp = newDispatcher(sink)
	})
	return disp
}

// ShowImage displays img in the window/output identified by key.
// ShowImage never blocks on a slow or absent renderer: if key's
// previous frame hasn't been rendered yet, it is dropped in favor of
// img.
func ShowImage(key string, img *image.Image) {
	getDispatcher().showImage(key, img)
}

// dispatcher owns one capacity-1 channel per key and one goroutine per
// key draining it into the configured Sink.
type dispatcher struct {
	sink Sink

	mu    sync.Mutex
	chans map[string]chan *image.Image
}

func newDispatcher(sink Sink) *dispatcher {
	return &dispatcher{sink: sink, chans: make(map[string]chan *image.Image)}
}

func (d *dispatcher) showImage(key string, img *image.Image) {
	sendLatest(d.channelFor(key), img)
}

func (d *dispatcher) channelFor(key string) chan *image.Image {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch, ok := d.chans[key]
	if ok {
		return ch
	}
	ch = make(chan *image.Image, 1)
	d.chans[key] = ch
	go d.run(key, ch)
	return ch
}

func (d *dispatcher) run(key string, ch chan *image.Image) {
	for img := range ch {
		d.sink.Render(key, img)
	}
}

// sendLatest pushes img onto ch, a capacity-1 channel, dropping
// whatever frame was previously queued (if the consumer hasn't taken
// it yet) rather than blocking.
func sendLatest(ch chan *image.Image, img *image.Image) {
	for {
		select {
		case ch <- img:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
