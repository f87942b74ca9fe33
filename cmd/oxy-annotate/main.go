// Command oxy-annotate projects labelled anchors over a loaded 3D scene, hides the ones
// blocked by geometry, and can write the resulting marker layer to a PNG.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Carmen-Shannon/oxy-annotate/engine"
	"github.com/Carmen-Shannon/oxy-annotate/engine/camera"
	"github.com/Carmen-Shannon/oxy-annotate/engine/loader"
	"github.com/Carmen-Shannon/oxy-annotate/engine/marker"
	"github.com/Carmen-Shannon/oxy-annotate/engine/overlay"
	"github.com/Carmen-Shannon/oxy-annotate/engine/profiler"
	"github.com/Carmen-Shannon/oxy-annotate/engine/scene"
	"github.com/Carmen-Shannon/oxy-annotate/engine/viewport"
	"github.com/Carmen-Shannon/oxy-annotate/internal/config"
	"github.com/Carmen-Shannon/oxy-annotate/internal/logging"
	"github.com/chewxy/math32"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
)

type options struct {
	configDir string
	frames    uint64
	snapshot  string
	spin      float64
	watch     bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configDir, "config", ".", "directory containing "+config.FileName)
	flag.Uint64Var(&opts.frames, "frames", 0, "stop after this many frames (0 runs until interrupted)")
	flag.StringVar(&opts.snapshot, "snapshot", "", "write the marker layer to this PNG file on exit")
	flag.Float64Var(&opts.spin, "spin", 0, "orbit the camera by this many degrees per second")
	flag.BoolVar(&opts.watch, "watch", false, "reload the config file when it changes")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintln(os.Stderr, "oxy-annotate:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	settings, err := config.Load(opts.configDir)
	if err != nil {
		return err
	}
	logger := logging.New(settings.LogLevel, os.Stdout, logging.Options{})

	specs, err := config.LoadAnchors(config.Resolve(opts.configDir, settings.AnchorsFile))
	if err != nil {
		return err
	}

	vp := viewport.NewViewport(viewport.WithSize(settings.Viewport.Width, settings.Viewport.Height))
	cam := newCamera(settings, orbitStep(opts.spin, settings.TickRate))
	sc := scene.NewScene("annotate", scene.WithNodes(scene.NewGridNode(settings.Grid.Size, settings.Grid.Divisions)))

	width, height := vp.Size()
	canvas := marker.NewCanvas(width, height, marker.WithMarkerSize(settings.Marker.Size))

	anchors := make([]overlay.Anchor, len(specs))
	for i, s := range specs {
		anchors[i] = overlay.Anchor{
			Name:     s.Name,
			Label:    s.Label,
			Position: s.Position,
			Marker:   marker.NewLogSink(s.Name, canvas.Marker(s.Label), logger),
		}
	}

	ov := overlay.NewController(cam, sc, vp, anchors,
		overlay.WithMarkerSize(settings.Marker.Size),
		overlay.WithOffscreenHidden(settings.Marker.HideOffscreen),
		overlay.WithLogger(logger),
		overlay.WithMeter(otel.Meter("github.com/Carmen-Shannon/oxy-annotate")),
	)

	loaderOptions := []loader.LoaderBuilderOption{loader.WithLogger(logger)}
	if settings.LoadWorkers > 0 {
		loaderOptions = append(loaderOptions, loader.WithWorkers(settings.LoadWorkers))
	}
	ld := loader.NewLoader(loader.BackendTypeGLTF, loaderOptions...)
	models := make([]string, len(settings.Models))
	for i, m := range settings.Models {
		models[i] = config.Resolve(opts.configDir, m)
	}
	ld.Batch(models, func(results []loader.BatchResult, err error) {
		for _, r := range results {
			if r.Node != nil {
				sc.Add(r.Node)
			}
		}
		if err != nil {
			logger.Warn().Err(err).Msg("some models failed to load; occlusion uses the rest")
		}
		ov.MarkReady()
	})

	e := engine.NewEngine(
		engine.WithTickRate(settings.TickRate),
		engine.WithFrameLimit(opts.frames),
		engine.WithViewport(vp),
		engine.WithCamera(cam),
		engine.WithOverlay(ov),
		engine.WithLogger(logger),
		engine.WithProfiling(settings.ProfileStats),
		engine.WithProfiler(profiler.NewProfiler(profiler.WithLogger(logger))),
		engine.WithResizeHandler(canvas.Resize),
		engine.WithFrameCallback(func(float32, overlay.FrameResult) {
			switch {
			case opts.spin > 0:
				cam.Controller().OrbitRight()
			case opts.spin < 0:
				cam.Controller().OrbitLeft()
			}
		}),
	)

	if opts.watch {
		config.Watch(func(s config.Settings) {
			vp.Resize(s.Viewport.Width, s.Viewport.Height)
			if s.ProfileStats {
				e.EnableProfiler()
			} else {
				e.DisableProfiler()
			}
			logger.Info().Msg("config reloaded")
		}, func(err error) {
			logger.Warn().Err(err).Msg("config reload rejected")
		})
	}

	runErr := e.Run(ctx)
	if opts.snapshot != "" {
		if err := canvas.SavePNG(opts.snapshot); err != nil {
			return errors.Join(runErr, err)
		}
		logger.Info().Str("path", opts.snapshot).Msg("snapshot written")
	}
	logSummary(logger, ov)
	return runErr
}

// orbitStep converts a spin rate in degrees per second into the azimuth step of one frame.
func orbitStep(degreesPerSecond, tickRate float64) float32 {
	if tickRate <= 0 {
		tickRate = 60
	}
	return math32.Abs(float32(degreesPerSecond)) * math32.Pi / 180 / float32(tickRate)
}

func newCamera(s config.Settings, step float32) camera.Camera {
	pos, target := s.CameraPosition(), s.CameraTarget()
	ctrl := camera.NewOrbitController(
		camera.WithOrbitSpeed(step),
		camera.WithTarget(target[0], target[1], target[2]),
		camera.WithPosition(pos[0], pos[1], pos[2]),
		camera.WithDamping(s.Camera.Damping),
		camera.WithDampingFactor(s.Camera.DampingFactor),
	)
	return camera.NewCamera(
		camera.WithFov(s.Camera.Fov*math32.Pi/180),
		camera.WithNear(s.Camera.Near),
		camera.WithFar(s.Camera.Far),
		camera.WithAspect(float32(s.Viewport.Width)/float32(s.Viewport.Height)),
		camera.WithController(ctrl),
	)
}

func logSummary(logger zerolog.Logger, ov overlay.Controller) {
	logger.Info().
		Str("readiness", ov.Readiness().String()).
		Int("anchors", len(ov.Anchors())).
		Msg("overlay stopped")
}
