package config

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "oxy-annotate.cfg.json"

// CameraConfig holds the initial camera pose and projection.
type CameraConfig struct {
	Fov           float32   `json:"fov" mapstructure:"fov"`
	Near          float32   `json:"near" mapstructure:"near"`
	Far           float32   `json:"far" mapstructure:"far"`
	Position      []float32 `json:"position" mapstructure:"position"`
	Target        []float32 `json:"target" mapstructure:"target"`
	Damping       bool      `json:"damping" mapstructure:"damping"`
	DampingFactor float32   `json:"dampingFactor" mapstructure:"dampingFactor"`
}

// ViewportConfig holds the drawable area in pixels.
type ViewportConfig struct {
	Width  int `json:"width" mapstructure:"width"`
	Height int `json:"height" mapstructure:"height"`
}

// MarkerConfig holds marker geometry and the off-screen policy.
type MarkerConfig struct {
	Size          float32 `json:"size" mapstructure:"size"`
	HideOffscreen bool    `json:"hideOffscreen" mapstructure:"hideOffscreen"`
}

// GridConfig describes the non-occluding ground helper.
type GridConfig struct {
	Size      float32 `json:"size" mapstructure:"size"`
	Divisions int     `json:"divisions" mapstructure:"divisions"`
}

// Settings is the decoded configuration.
type Settings struct {
	LogLevel     string         `json:"logLevel" mapstructure:"logLevel"`
	TickRate     float64        `json:"tickRate" mapstructure:"tickRate"`
	LoadWorkers  int            `json:"loadWorkers" mapstructure:"loadWorkers"`
	Models       []string       `json:"models" mapstructure:"models"`
	AnchorsFile  string         `json:"anchorsFile" mapstructure:"anchorsFile"`
	Camera       CameraConfig   `json:"camera" mapstructure:"camera"`
	Viewport     ViewportConfig `json:"viewport" mapstructure:"viewport"`
	Marker       MarkerConfig   `json:"marker" mapstructure:"marker"`
	Grid         GridConfig     `json:"grid" mapstructure:"grid"`
	ProfileStats bool           `json:"profileStats" mapstructure:"profileStats"`
}

// Load reads configuration from the JSON file in configDir and sets default values.
func Load(configDir string) (Settings, error) {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		return Settings{}, fmt.Errorf("error reading config file: %w", err)
	}
	return Current()
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("tickRate", 60)
	viper.SetDefault("loadWorkers", 0)
	viper.SetDefault("models", []string{})
	viper.SetDefault("anchorsFile", "anchors.yaml")
	viper.SetDefault("profileStats", false)

	viper.SetDefault("camera.fov", 75)
	viper.SetDefault("camera.near", 0.1)
	viper.SetDefault("camera.far", 1000)
	viper.SetDefault("camera.position", []float32{4, 2, 4})
	viper.SetDefault("camera.target", []float32{0, 0, 0})
	viper.SetDefault("camera.damping", true)
	viper.SetDefault("camera.dampingFactor", 0.05)

	viper.SetDefault("viewport.width", 1280)
	viper.SetDefault("viewport.height", 720)

	viper.SetDefault("marker.size", 40)
	viper.SetDefault("marker.hideOffscreen", false)

	viper.SetDefault("grid.size", 200)
	viper.SetDefault("grid.divisions", 50)
}

// Current decodes the live viper state into Settings and validates it.
func Current() (Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("error decoding config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks value ranges that viper cannot express.
func (s Settings) Validate() error {
	if len(s.Camera.Position) != 3 {
		return fmt.Errorf("camera.position: want 3 components, got %d", len(s.Camera.Position))
	}
	if len(s.Camera.Target) != 3 {
		return fmt.Errorf("camera.target: want 3 components, got %d", len(s.Camera.Target))
	}
	if s.Camera.Near <= 0 || s.Camera.Far <= s.Camera.Near {
		return fmt.Errorf("camera clip planes: need 0 < near < far, got %g and %g", s.Camera.Near, s.Camera.Far)
	}
	if s.Camera.Fov <= 0 || s.Camera.Fov >= 180 {
		return fmt.Errorf("camera.fov: %g degrees out of range", s.Camera.Fov)
	}
	if s.Camera.DampingFactor <= 0 || s.Camera.DampingFactor > 1 {
		return fmt.Errorf("camera.dampingFactor: %g out of range (0, 1]", s.Camera.DampingFactor)
	}
	if s.Viewport.Width <= 0 || s.Viewport.Height <= 0 {
		return fmt.Errorf("viewport: invalid size %dx%d", s.Viewport.Width, s.Viewport.Height)
	}
	if s.Marker.Size < 0 {
		return fmt.Errorf("marker.size: %g is negative", s.Marker.Size)
	}
	return nil
}

// CameraPosition returns camera.position as a vector.
func (s Settings) CameraPosition() [3]float32 {
	return [3]float32(s.Camera.Position)
}

// CameraTarget returns camera.target as a vector.
func (s Settings) CameraTarget() [3]float32 {
	return [3]float32(s.Camera.Target)
}

// Resolve makes a config-relative path absolute against configDir.
func Resolve(configDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(configDir, path)
}

// Watch re-decodes the config whenever the file changes and hands valid settings to fn.
// Invalid edits are reported through onError and otherwise ignored.
func Watch(fn func(Settings), onError func(error)) {
	viper.OnConfigChange(changeHandler(fn, onError))
	viper.WatchConfig()
}

func changeHandler(fn func(Settings), onError func(error)) func(fsnotify.Event) {
	return func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		s, err := Current()
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}
		fn(s)
	}
}
