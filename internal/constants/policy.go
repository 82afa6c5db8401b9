package constants

// Extrapolation is the policy applied when a particle samples the field
// outside its valid domain.
type Extrapolation string

const (
	// ExtrapolateZero substitutes zero diffusivity, force and divergence for
	// the affected particle's step and logs a warning.
	ExtrapolateZero Extrapolation = "zero"

	// ExtrapolateFail marks the affected particle as failed.
	ExtrapolateFail Extrapolation = "fail"

	// ExtrapolateAbort aborts the whole run.
	ExtrapolateAbort Extrapolation = "abort"
)

// Valid returns true if the policy is a recognized value.
func (e Extrapolation) Valid() bool {
	switch e {
	case ExtrapolateZero, ExtrapolateFail, ExtrapolateAbort:
		return true
	}
	return false
}

// String returns the string representation of the policy.
func (e Extrapolation) String() string {
	return string(e)
}

// Placement selects how initial particle positions are drawn.
type Placement string

const (
	// PlacementDisc draws positions uniformly over a disc in the pore entrance plane.
	PlacementDisc Placement = "disc"

	// PlacementSphere draws positions uniformly over a hemisphere above the pore entrance.
	PlacementSphere Placement = "sphere"

	// PlacementPoint starts every particle at the same point.
	PlacementPoint Placement = "point"
)

// Valid returns true if the placement is a recognized value.
func (p Placement) Valid() bool {
	switch p {
	case PlacementDisc, PlacementSphere, PlacementPoint:
		return true
	}
	return false
}

// String returns the string representation of the placement.
func (p Placement) String() string {
	return string(p)
}
