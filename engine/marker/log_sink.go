package marker

import (
	"sync"

	"github.com/rs/zerolog"
)

// LogSink forwards every write to an inner Sink and logs when the marker's visibility changes.
// Offsets are logged at trace level only, since they change every frame the camera moves.
type LogSink struct {
	mu *sync.Mutex

	name   string
	inner  Sink
	logger zerolog.Logger

	known   bool
	visible bool
}

var _ Sink = &LogSink{}

// NewLogSink wraps inner. A nil inner is allowed and turns the sink into a pure logger.
//
// Parameters:
//   - name: the marker name attached to every log line
//   - inner: the sink to forward to, or nil
//   - logger: the zerolog logger
//
// Returns:
//   - *LogSink: the logging sink
func NewLogSink(name string, inner Sink, logger zerolog.Logger) *LogSink {
	return &LogSink{
		mu:     &sync.Mutex{},
		name:   name,
		inner:  inner,
		logger: logger.With().Str("marker", name).Logger(),
	}
}

func (s *LogSink) SetVisible(visible bool) {
	s.mu.Lock()
	changed := !s.known || s.visible != visible
	s.known, s.visible = true, visible
	s.mu.Unlock()

	if changed {
		s.logger.Info().Bool("visible", visible).Msg("marker visibility changed")
	}
	if s.inner != nil {
		s.inner.SetVisible(visible)
	}
}

func (s *LogSink) SetOffset(x, y float32) {
	s.logger.Trace().Float32("x", x).Float32("y", y).Msg("marker offset")
	if s.inner != nil {
		s.inner.SetOffset(x, y)
	}
}
