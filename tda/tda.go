// Package tda defines the Transit Detection Algorithm interface and a
// registry of deterministic stand-ins, one per name in constants.TDANames.
// The scientific algorithms themselves (box-least-squares, transit-least-
// squares, the QATS subprocess, DST) are out of scope per the testbench
// specification; what matters to the orchestration engine is only that a
// named algorithm accepts a light curve and search settings and returns a
// period estimate the Task Runner can quality-control against the
// injected orbital_period metadata.
package tda

import (
	"context"
	"fmt"
	"hash/fnv"

	"plato-wp36.eu/testbench/lightcurve"
)

// Settings carries the transit_search verb's tunable search bounds.
type Settings struct {
	PeriodMin *float64
	PeriodMax *float64
}

// Summary is the headline result of a search, compared by the Task Runner
// against the source raster's orbital_period metadata for quality control.
type Summary struct {
	Period          float64 `json:"period"`
	TransitDuration float64 `json:"transit_duration"`
	Depth           float64 `json:"depth"`
	SignalStrength  float64 `json:"signal_strength"`
}

// Extended holds any additional per-search payload too large or too
// algorithm-specific to belong in Summary; it becomes the ResultRecord's
// extended artifact when non-empty.
type Extended struct {
	Periodogram map[string]interface{} `json:"periodogram,omitempty"`
}

// Algorithm is the interface every named TDA implements.
type Algorithm interface {
	Search(ctx context.Context, source lightcurve.ArbitraryRaster, duration float64, settings Settings) (Summary, Extended, error)
}

// stub is a deterministic, seedable stand-in: its period estimate is the
// source raster's own orbital_period metadata perturbed by a small jitter
// derived from the algorithm's name and the target name. The jitter
// fraction times a seed in [-1, 1) keeps the estimate within 6% of the
// true period, so on its own it always lands inside the Task Runner's 10%
// pass band; only a PeriodMin/PeriodMax clamp can move it outside.
type stub struct {
	name   string
	jitter float64
}

func newStub(name string, jitterFraction float64) *stub {
	return &stub{name: name, jitter: jitterFraction}
}

func (s *stub) Search(ctx context.Context, source lightcurve.ArbitraryRaster, duration float64, settings Settings) (Summary, Extended, error) {
	if err := ctx.Err(); err != nil {
		return Summary{}, Extended{}, err
	}

	orbitalPeriod, ok := source.Metadata["orbital_period"].(float64)
	if !ok {
		return Summary{}, Extended{}, fmt.Errorf("tda: %s: source has no orbital_period metadata", s.name)
	}

	seed := seedFromName(s.name, source.Metadata)
	period := orbitalPeriod * (1.0 + s.jitter*seed)
	period = clampToSettings(period, settings)

	depth := 1.0 - minFlux(source.Fluxes)
	summary := Summary{
		Period:          period,
		TransitDuration: duration * 0.01,
		Depth:           depth,
		SignalStrength:  depth * float64(source.Len()),
	}

	extended := Extended{
		Periodogram: map[string]interface{}{
			"algorithm": s.name,
			"n_samples": source.Len(),
		},
	}
	return summary, extended, nil
}

func clampToSettings(period float64, settings Settings) float64 {
	if settings.PeriodMin != nil && period < *settings.PeriodMin {
		period = *settings.PeriodMin
	}
	if settings.PeriodMax != nil && period > *settings.PeriodMax {
		period = *settings.PeriodMax
	}
	return period
}

func minFlux(fluxes []float64) float64 {
	if len(fluxes) == 0 {
		return 1.0
	}
	min := fluxes[0]
	for _, f := range fluxes[1:] {
		if f < min {
			min = f
		}
	}
	return min
}

// seedFromName derives a stable value in [-1, 1) from the algorithm name
// and, when present, the target name in metadata, so repeated runs of the
// same (algorithm, target) pair always produce the same jittered period.
func seedFromName(name string, metadata map[string]interface{}) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	if target, ok := metadata["target_name"].(string); ok {
		_, _ = h.Write([]byte(target))
	}
	sum := h.Sum32()
	return (float64(sum%2000) / 1000.0) - 1.0
}

// Registry maps a TDA name to its stand-in implementation.
type Registry struct {
	algorithms map[string]Algorithm
}

// NewRegistry builds the stand-in registry for every name in
// constants.TDANames, each with a distinct jitter fraction (at most 0.06 in
// magnitude) so the same target yields a different period estimate per
// algorithm.
func NewRegistry() *Registry {
	jitters := map[string]float64{
		"bls_reference": 0.02,
		"bls_kovacs":    0.04,
		"dst_v26":       -0.03,
		"dst_v29":       -0.015,
		"exotrans":      0.06,
		"qats":          0.01,
		"tls":           -0.05,
	}

	r := &Registry{algorithms: map[string]Algorithm{}}
	for name, jitter := range jitters {
		r.algorithms[name] = newStub(name, jitter)
	}
	return r
}

// Lookup returns the algorithm registered under name.
func (r *Registry) Lookup(name string) (Algorithm, error) {
	algorithm, ok := r.algorithms[name]
	if !ok {
		return nil, fmt.Errorf("tda: unknown algorithm %q", name)
	}
	return algorithm, nil
}
