// Package constants provides named constants used throughout the porewalk codebase.
// This centralizes physical constants and simulation defaults.
package constants

// Physical constants in simulation units (nm, ns, pN).
const (
	// BoltzmannPNNM is the Boltzmann constant in pN*nm per kelvin.
	BoltzmannPNNM = 1.380649e-2

	// Avogadro is the Avogadro constant in 1/mol.
	Avogadro = 6.02214076e23

	// LitersPerCubicNM converts a volume in nm^3 to liters.
	LitersPerCubicNM = 1e-24

	// SecondsPerNS converts nanoseconds to seconds.
	SecondsPerNS = 1e-9

	// DefaultTemperature is the default temperature in kelvin.
	DefaultTemperature = 298.15
)

// Random walk defaults.
const (
	// DefaultParticles is the default number of simultaneous random walks.
	DefaultParticles = 10

	// DefaultTimestep is the default integration timestep in ns.
	DefaultTimestep = 1.0

	// DefaultParticleRadius is the default particle radius in nm.
	DefaultParticleRadius = 6.0

	// DefaultWallDistance is the collision radius of the pore wall in
	// multiples of the particle radius. Should be >= 1.
	DefaultWallDistance = 2.0

	// DefaultMarginTop is how far above the pore top a particle must escape
	// before it counts as failed, in nm.
	DefaultMarginTop = 20.0

	// DefaultMarginBottom is how far below the pore bottom a particle must
	// travel before it counts as translocated, in nm.
	DefaultMarginBottom = 10.0

	// DefaultMaxExtrapolatedSteps is how many consecutive steps a particle
	// may sample outside the field under the zero policy before it fails.
	DefaultMaxExtrapolatedSteps = 100

	// MaxSeedAttempts bounds rejection sampling of initial positions per particle.
	MaxSeedAttempts = 1000
)

// Domain defaults.
const (
	// DefaultDomainWallDistance is the collision radius of auxiliary domains
	// in multiples of the particle radius.
	DefaultDomainWallDistance = 1.5

	// DefaultTolerance is the bisection accuracy when truncating a step, in nm.
	DefaultTolerance = 0.01

	// DefaultReattemptMargin is added to the collision radius to form the
	// shell a particle must leave before it may attempt binding again, in nm.
	DefaultReattemptMargin = 1.0

	// DefaultBarrierWidth is the width of the bond energy barrier used for
	// force-accelerated dissociation, in nm.
	DefaultBarrierWidth = 0.1
)

// Histogram defaults for dwell-time aggregation.
const (
	// DefaultHistogramBins is the number of logarithmic bins.
	DefaultHistogramBins = 100

	// ReferenceCurvePoints is the number of samples on the exponential reference curve.
	ReferenceCurvePoints = 1000

	// DefaultHistogramLow and DefaultHistogramHigh are the decimal exponents
	// of the histogram range, in DefaultTimeUnit.
	DefaultHistogramLow  = 0.0
	DefaultHistogramHigh = 6.0

	// DefaultTimeUnit is the histogram time unit in seconds (microseconds).
	DefaultTimeUnit = 1e-6
)

// Default geometry and field of a run configured without a pore profile or
// field grid.
const (
	// DefaultPoreRadius is the radius of the default cylindrical pore in nm.
	DefaultPoreRadius = 20.0

	// DefaultPoreZMin and DefaultPoreZMax bound the default pore in nm.
	DefaultPoreZMin = -50.0
	DefaultPoreZMax = 0.0

	// DefaultOuterRadius is the radius of the membrane around the pore in nm.
	DefaultOuterRadius = 100.0

	// DefaultDiffusivity is the bulk diffusivity of a 6 nm sphere in water
	// at room temperature, in nm^2/ns.
	DefaultDiffusivity = 0.04
)
