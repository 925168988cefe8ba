// Package constants holds the fixed numeric identifier table and TDA name
// table shared by the iteration expander and the task runner. These mirror
// the Python original's constants.py verbatim; nothing here is derived or
// configurable, so it is compiled in rather than loaded from a file.
package constants

// Named numeric identifiers recognized inside IterationAxis bound
// expressions (see iterate.EvalExpr). Units match the Python original: radii
// and AU in metres, REarth as Earth's radius in Jupiter radii, PlatoNoise
// as a fractional flux, Day/Month/Year in days.
const (
	Day          = 1.0
	Month        = 28.0
	Year         = 365.25
	SunRadius    = 695500e3
	EarthRadius  = 6371e3
	JupiterRadius = 71492e3
	PhyAU        = 149597870700.0
	REarth       = 0.08911486
	PlatoNoise   = 0.000315
)

// Identifiers is the fixed identifier table exposed to the expression
// parser in iterate.EvalExpr. No other names are resolvable there.
var Identifiers = map[string]float64{
	"day":            Day,
	"month":          Month,
	"year":           Year,
	"sun_radius":     SunRadius,
	"earth_radius":   EarthRadius,
	"jupiter_radius": JupiterRadius,
	"phy_AU":         PhyAU,
	"Rearth":         REarth,
	"plato_noise":    PlatoNoise,
}

// TDA name constants, the exhaustive set of tda_name values accepted by the
// transit_search verb.
const (
	TDABLSKovacs   = "bls_kovacs"
	TDABLSReference = "bls_reference"
	TDADSTv26      = "dst_v26"
	TDADSTv29      = "dst_v29"
	TDAExotrans    = "exotrans"
	TDAQATS        = "qats"
	TDATLS         = "tls"
)

// TDANames is the exhaustive, ordered set of recognized TDA names.
var TDANames = []string{
	TDABLSReference,
	TDABLSKovacs,
	TDADSTv26,
	TDADSTv29,
	TDAExotrans,
	TDAQATS,
	TDATLS,
}
