package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	writeConfig(t, dir, `{
		"logLevel": "debug",
		"models": ["rocket.glb", "pad.gltf"],
		"camera": { "position": [0, 9, -10], "target": [0, 3.3, -1], "damping": false },
		"viewport": { "width": 1920, "height": 1080 },
		"marker": { "size": 32, "hideOffscreen": true }
	}`)

	s, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", s.LogLevel)
	assert.Equal(t, []string{"rocket.glb", "pad.gltf"}, s.Models)
	assert.Equal(t, [3]float32{0, 9, -10}, s.CameraPosition())
	assert.Equal(t, [3]float32{0, 3.3, -1}, s.CameraTarget())
	assert.False(t, s.Camera.Damping)
	assert.Equal(t, 1920, s.Viewport.Width)
	assert.Equal(t, 1080, s.Viewport.Height)
	assert.Equal(t, float32(32), s.Marker.Size)
	assert.True(t, s.Marker.HideOffscreen)

	// Untouched keys keep their defaults.
	assert.Equal(t, float32(75), s.Camera.Fov)
	assert.Equal(t, float32(0.05), s.Camera.DampingFactor)
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	writeConfig(t, dir, `{}`)

	s, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, 60.0, s.TickRate)
	assert.Equal(t, 0, s.LoadWorkers)
	assert.Empty(t, s.Models)
	assert.Equal(t, "anchors.yaml", s.AnchorsFile)
	assert.Equal(t, float32(75), s.Camera.Fov)
	assert.Equal(t, float32(0.1), s.Camera.Near)
	assert.Equal(t, float32(1000), s.Camera.Far)
	assert.Equal(t, [3]float32{4, 2, 4}, s.CameraPosition())
	assert.Equal(t, [3]float32{0, 0, 0}, s.CameraTarget())
	assert.True(t, s.Camera.Damping)
	assert.Equal(t, 1280, s.Viewport.Width)
	assert.Equal(t, 720, s.Viewport.Height)
	assert.Equal(t, float32(40), s.Marker.Size)
	assert.False(t, s.Marker.HideOffscreen)
	assert.Equal(t, float32(200), s.Grid.Size)
	assert.Equal(t, 50, s.Grid.Divisions)
	assert.False(t, s.ProfileStats)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	_, err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"short position", `{"camera": {"position": [1, 2]}}`, "camera.position"},
		{"clip planes", `{"camera": {"near": 5, "far": 1}}`, "clip planes"},
		{"fov", `{"camera": {"fov": 180}}`, "camera.fov"},
		{"damping factor", `{"camera": {"dampingFactor": 0}}`, "dampingFactor"},
		{"viewport", `{"viewport": {"width": 0}}`, "viewport"},
		{"marker", `{"marker": {"size": -1}}`, "marker.size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(viper.Reset)
			dir := t.TempDir()
			writeConfig(t, dir, tt.body)

			_, err := Load(dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestResolve(t *testing.T) {
	assert.Equal(t, filepath.Join("cfg", "anchors.yaml"), Resolve("cfg", "anchors.yaml"))
	assert.Equal(t, "/abs/anchors.yaml", Resolve("cfg", "/abs/anchors.yaml"))
	assert.Equal(t, "", Resolve("cfg", ""))
}

func TestChangeHandlerAppliesValidEdits(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	path := writeConfig(t, dir, `{}`)
	_, err := Load(dir)
	require.NoError(t, err)

	var got []Settings
	var errs []error
	handle := changeHandler(func(s Settings) { got = append(got, s) }, func(err error) { errs = append(errs, err) })

	viper.Set("viewport.width", 640)
	handle(fsnotify.Event{Name: path, Op: fsnotify.Write})
	require.Len(t, got, 1)
	assert.Equal(t, 640, got[0].Viewport.Width)

	handle(fsnotify.Event{Name: path, Op: fsnotify.Chmod})
	assert.Len(t, got, 1)

	viper.Set("viewport.width", -1)
	handle(fsnotify.Event{Name: path, Op: fsnotify.Write})
	assert.Len(t, got, 1)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "viewport")
}

func TestDecodeAnchors(t *testing.T) {
	doc := `
anchors:
  - name: nose
    label: Nose cone
    position: [0, 6, 0]
  - name: fin
    position: [0.5, 0.2, 0]
`
	anchors, err := DecodeAnchors(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, anchors, 2)
	assert.Equal(t, AnchorSpec{Name: "nose", Label: "Nose cone", Position: [3]float32{0, 6, 0}}, anchors[0])
	assert.Equal(t, "fin", anchors[1].Label)
	assert.Equal(t, [3]float32{0.5, 0.2, 0}, anchors[1].Position)
}

func TestDecodeAnchorsErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"missing name", "anchors:\n  - position: [0, 0, 0]\n", "missing name"},
		{"duplicate", "anchors:\n  - name: a\n  - name: a\n", "already used"},
		{"short position", "anchors:\n  - name: a\n    position: [1, 2]\n", "decode anchors"},
		{"unknown field", "anchors:\n  - name: a\n    colour: red\n", "decode anchors"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeAnchors(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	for _, empty := range []string{"", "anchors: []\n"} {
		_, err := DecodeAnchors(strings.NewReader(empty))
		assert.True(t, errors.Is(err, ErrNoAnchors), "input %q", empty)
	}
}

func TestLoadAnchors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "anchors.yaml")
	require.NoError(t, os.WriteFile(path, []byte("anchors:\n  - name: a\n    position: [1, 2, 3]\n"), 0644))

	anchors, err := LoadAnchors(path)
	require.NoError(t, err)
	assert.Equal(t, [3]float32{1, 2, 3}, anchors[0].Position)

	_, err = LoadAnchors(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.WriteFile(path, []byte("anchors: []\n"), 0644))
	_, err = LoadAnchors(path)
	assert.ErrorIs(t, err, ErrNoAnchors)
	assert.Contains(t, err.Error(), path)
}
