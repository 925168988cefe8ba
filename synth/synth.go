// Package synth implements the two light-curve synthesis back-ends,
// PSLS and Batman, as deterministic sinusoidal-dip generators. The real
// PLATO Simulator and the batman transit-modeling package are out of
// scope per the testbench specification; what the orchestration engine
// needs is only that a named synthesiser accepts a spec and returns an
// ArbitraryRaster carrying the metadata contract psls_synthesise and
// batman_synthesise promise (integrated_transit_power, pixels_in_transit,
// pixels_out_of_transit, mes).
package synth

import (
	"context"
	"fmt"
	"math"

	"plato-wp36.eu/testbench/lightcurve"
)

// Specs is the parameter schema shared by psls_synthesise and
// batman_synthesise, per spec §6's ConcreteTask shape table.
type Specs struct {
	Duration        float64 `json:"duration"`
	PlanetRadius    float64 `json:"planet_radius"`
	OrbitalPeriod   float64 `json:"orbital_period"`
	SemiMajorAxis   float64 `json:"semi_major_axis"`
	OrbitalAngle    float64 `json:"orbital_angle"`
	ImpactParameter float64 `json:"impact_parameter,omitempty"`
	Eccentricity    float64 `json:"eccentricity,omitempty"`
	Noise           float64 `json:"noise,omitempty"`
	SamplingCadence float64 `json:"sampling_cadence,omitempty"`
	EnableTransits  *bool   `json:"enable_transits,omitempty"`
}

func (s Specs) cadenceDays() float64 {
	if s.SamplingCadence > 0 {
		return s.SamplingCadence / 86400.0
	}
	return 1800.0 / 86400.0 // default 30 minute cadence, PLATO's nominal rate
}

func (s Specs) transitsEnabled() bool {
	return s.EnableTransits == nil || *s.EnableTransits
}

// Synthesiser is the interface both back-ends implement.
type Synthesiser interface {
	Synthesise(ctx context.Context, specs Specs) (*lightcurve.ArbitraryRaster, error)
}

// generate builds a fixed-cadence raster spanning specs.Duration days,
// with a transit dip of fractional depth depthFraction injected once per
// orbital period whenever specs.transitsEnabled(), and pseudo-random noise
// derived deterministically from specs so repeated calls with the same
// specs reproduce the same light curve.
func generate(specs Specs, depthFraction float64) (*lightcurve.ArbitraryRaster, error) {
	if specs.Duration <= 0 {
		return nil, fmt.Errorf("synth: duration must be positive, got %v", specs.Duration)
	}
	if specs.OrbitalPeriod <= 0 {
		return nil, fmt.Errorf("synth: orbital_period must be positive, got %v", specs.OrbitalPeriod)
	}

	cadence := specs.cadenceDays()
	n := int(specs.Duration/cadence) + 1
	if n < 3 {
		n = 3
	}

	transitDuration := transitDurationDays(specs)
	transitHalfWidth := transitDuration / 2

	times := make([]float64, n)
	fluxes := make([]float64, n)
	flags := make([]float64, n)
	uncertainties := make([]float64, n)

	pixelsInTransit := 0
	integratedPower := 0.0
	noiseState := seedNoise(specs)

	for i := 0; i < n; i++ {
		t := float64(i) * cadence
		times[i] = t

		flux := 1.0
		phase := math.Mod(t, specs.OrbitalPeriod)
		if phase > specs.OrbitalPeriod/2 {
			phase -= specs.OrbitalPeriod
		}

		if specs.transitsEnabled() && math.Abs(phase) <= transitHalfWidth {
			dip := depthFraction * transitShape(phase, transitHalfWidth)
			flux -= dip
			integratedPower += dip
			pixelsInTransit++
		}

		noiseState = nextNoise(noiseState)
		noiseAmplitude := specs.Noise
		if noiseAmplitude == 0 {
			noiseAmplitude = 1e-4
		}
		flux += (noiseState - 0.5) * 2 * noiseAmplitude
		uncertainties[i] = noiseAmplitude

		fluxes[i] = flux
	}

	pixelsOutOfTransit := n - pixelsInTransit
	mes := 0.0
	if pixelsOutOfTransit > 0 && uncertainties[0] > 0 {
		mes = integratedPower / uncertainties[0] / math.Sqrt(float64(pixelsOutOfTransit))
	}

	metadata := map[string]interface{}{
		"orbital_period":           specs.OrbitalPeriod,
		"planet_radius":            specs.PlanetRadius,
		"integrated_transit_power": integratedPower,
		"pixels_in_transit":        float64(pixelsInTransit),
		"pixels_out_of_transit":    float64(pixelsOutOfTransit),
		"mes":                      mes,
	}

	return lightcurve.NewArbitraryRaster(times, fluxes, uncertainties, flags, metadata)
}

// transitDurationDays derives a plausible transit duration from orbital
// geometry: roughly the time to cross the stellar disk at the given
// semi-major axis, clamped to a sane fraction of the orbital period so the
// stand-in never produces an implausibly long or zero-width transit.
func transitDurationDays(specs Specs) float64 {
	d := specs.OrbitalPeriod * 0.02
	if specs.SemiMajorAxis > 0 {
		d = specs.OrbitalPeriod / (math.Pi * specs.SemiMajorAxis) * (1 + specs.PlanetRadius)
	}
	max := specs.OrbitalPeriod * 0.1
	if d > max {
		d = max
	}
	if d <= 0 {
		d = specs.OrbitalPeriod * 0.01
	}
	return d
}

// transitShape is a smooth unimodal ingress/egress profile over
// [-halfWidth, halfWidth], 1 at mid-transit and 0 at the edges.
func transitShape(phase, halfWidth float64) float64 {
	if halfWidth <= 0 {
		return 0
	}
	x := phase / halfWidth
	return math.Cos(x * math.Pi / 2)
}

// seedNoise and nextNoise form a tiny deterministic PRNG (a linear
// congruential generator) seeded from the spec's own parameters, so the
// same specs always synthesise the same noise trace without depending on
// a shared global random source.
func seedNoise(specs Specs) float64 {
	seed := specs.OrbitalPeriod*1000 + specs.PlanetRadius*7 + specs.SemiMajorAxis*13 + specs.OrbitalAngle*17
	return math.Abs(math.Mod(seed, 1.0))
}

func nextNoise(state float64) float64 {
	const a, c, m = 1103515245.0, 12345.0, 2147483648.0
	next := math.Mod(a*state*m+c, m) / m
	return math.Abs(next)
}

// PSLS is the deterministic stand-in for the PLATO Simulator synthesiser.
type PSLS struct{}

func (PSLS) Synthesise(ctx context.Context, specs Specs) (*lightcurve.ArbitraryRaster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	depth := depthFromRadii(specs)
	return generate(specs, depth)
}

// Batman is the deterministic stand-in for the batman transit-modeling
// package's synthesiser.
type Batman struct{}

func (Batman) Synthesise(ctx context.Context, specs Specs) (*lightcurve.ArbitraryRaster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Batman's limb-darkening model produces a slightly deeper apparent
	// transit than PSLS's flat-disk approximation for the same planet
	// radius; the stand-in reflects that with a small fixed multiplier.
	depth := depthFromRadii(specs) * 1.05
	return generate(specs, depth)
}

func depthFromRadii(specs Specs) float64 {
	if specs.SemiMajorAxis <= 0 {
		return specs.PlanetRadius * specs.PlanetRadius
	}
	// Approximate (Rp/Rs)^2 using planet radius relative to semi-major
	// axis as a stand-in for an actual stellar radius input, which specs
	// does not carry.
	ratio := specs.PlanetRadius / specs.SemiMajorAxis
	return ratio * ratio
}
