package randomwalk

import (
	"fmt"
	"math"

	"github.com/nvandessel/porewalk/internal/constants"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"
)

// place seeds every particle according to the configured placement,
// redrawing positions that fall within the pore wall's collision radius.
func (e *Engine) place() error {
	draw, err := e.sampler()
	if err != nil {
		return err
	}
	radius := e.cfg.ParticleRadius * e.cfg.WallDistance
	for i := range e.ens.X {
		placed := false
		for range constants.MaxSeedAttempts {
			x := draw()
			if e.pore.InsideSingle(x, radius) {
				continue
			}
			e.ens.X[i], e.ens.XOld[i] = x, x
			placed = true
			break
		}
		if !placed {
			return fmt.Errorf("%w: no free %s start position for particle %d after %d draws",
				ErrInvalidConfig, e.cfg.Placement, i, constants.MaxSeedAttempts)
		}
	}
	return nil
}

func (e *Engine) sampler() (func() r3.Vec, error) {
	ztop := e.pore.ZMax()
	angle := distuv.Uniform{Min: 0, Max: 2 * math.Pi, Src: e.src}
	unit := distuv.Uniform{Min: 0, Max: 1, Src: e.src}

	switch e.cfg.Placement {
	case constants.PlacementPoint:
		p := e.cfg.StartPoint
		return func() r3.Vec { return p }, nil

	case constants.PlacementSphere:
		R := e.cfg.StartRadius
		return func() r3.Vec {
			// The height of a uniform point on a hemisphere is uniform.
			h := unit.Rand()
			phi := angle.Rand()
			rho := math.Sqrt(1 - h*h)
			return r3.Vec{X: R * rho * math.Cos(phi), Y: R * rho * math.Sin(phi), Z: ztop + R*h}
		}, nil

	default:
		R := e.pore.RadiusTop() - 2*e.cfg.ParticleRadius
		if !(R > 0) {
			return nil, fmt.Errorf("%w: pore entrance radius %g too narrow for particle radius %g",
				ErrInvalidConfig, e.pore.RadiusTop(), e.cfg.ParticleRadius)
		}
		return func() r3.Vec {
			r := R * math.Sqrt(unit.Rand())
			phi := angle.Rand()
			return r3.Vec{X: r * math.Cos(phi), Y: r * math.Sin(phi), Z: ztop}
		}, nil
	}
}
