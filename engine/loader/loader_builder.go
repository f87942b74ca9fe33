package loader

import (
	"github.com/Carmen-Shannon/oxy-annotate/engine/model"
	"github.com/rs/zerolog"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithModel is an option builder that pre-populates the model cache with a model.
// Pre-populated models have no node hierarchy, so LoadScene places each mesh under the root.
//
// Parameters:
//   - key: the cache key for the model
//   - m: the model to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the model option to a loader
func WithModel(key string, m model.Model) LoaderBuilderOption {
	return func(l *loader) {
		meshModels := make([]model.Model, 0, len(m.Meshes()))
		for _, mesh := range m.Meshes() {
			meshModels = append(meshModels, model.NewModel(model.WithName(mesh.Name), model.WithMesh(mesh)))
		}
		l.modelCache[key] = &cacheEntry{
			model:      m,
			imported:   &model.ImportedModel{Name: m.Name(), Meshes: m.Meshes()},
			meshModels: meshModels,
		}
	}
}

// WithWorkers sets the number of pool workers used by Batch.
//
// Parameters:
//   - n: the worker count (minimum 1)
//
// Returns:
//   - LoaderBuilderOption: a function that applies the worker option to a loader
func WithWorkers(n int) LoaderBuilderOption {
	return func(l *loader) {
		l.workers = max(n, 1)
	}
}

// WithLogger sets the logger used to report loaded models and batch failures.
//
// Parameters:
//   - logger: the zerolog logger
//
// Returns:
//   - LoaderBuilderOption: a function that applies the logger option to a loader
func WithLogger(logger zerolog.Logger) LoaderBuilderOption {
	return func(l *loader) {
		l.logger = logger
	}
}
