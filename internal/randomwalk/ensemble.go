package randomwalk

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Status is the lifecycle state of a particle. Succeeded and Failed are
// terminal and never revert.
type Status uint8

const (
	Active Status = iota
	Succeeded
	Failed
)

// String returns the outcome label of the status.
func (s Status) String() string {
	switch s {
	case Active:
		return "active"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// ParseStatus maps an outcome label back to a Status.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "active":
		return Active, nil
	case "succeeded":
		return Succeeded, nil
	case "failed":
		return Failed, nil
	}
	return Active, fmt.Errorf("unknown status %q", s)
}

// Ensemble holds the state of all particles as parallel arrays indexed by
// particle. It is mutated only by Engine.Step and Domain resolution.
type Ensemble struct {
	X      []r3.Vec
	XOld   []r3.Vec
	Status []Status

	// FreeTime is the simulated time spent diffusing, BoundTime the
	// accumulated dwell of successful bindings.
	FreeTime  []float64
	BoundTime []float64

	Attempts []int
	Bindings []int

	// canBind holds one eligibility row per binding domain.
	canBind [][]bool

	// force is the magnitude of the force sampled at the last step.
	force []float64

	// extrapolated counts consecutive steps sampled outside the field;
	// warned marks particles whose first extrapolation was logged.
	extrapolated []int
	warned       []bool

	alive int
}

func newEnsemble(n int) *Ensemble {
	return &Ensemble{
		X:            make([]r3.Vec, n),
		XOld:         make([]r3.Vec, n),
		Status:       make([]Status, n),
		FreeTime:     make([]float64, n),
		BoundTime:    make([]float64, n),
		Attempts:     make([]int, n),
		Bindings:     make([]int, n),
		force:        make([]float64, n),
		extrapolated: make([]int, n),
		warned:       make([]bool, n),
		alive:        n,
	}
}

// Len returns the number of particles.
func (en *Ensemble) Len() int { return len(en.X) }

// Alive returns the number of active particles.
func (en *Ensemble) Alive() int { return en.alive }

// CanBind reports whether particle i may attempt binding in the binding
// domain occupying slot.
func (en *Ensemble) CanBind(slot, i int) bool {
	return en.canBind[slot][i]
}

// active returns the indices of active particles in ascending order.
func (en *Ensemble) active() []int {
	idx := make([]int, 0, en.alive)
	for i, s := range en.Status {
		if s == Active {
			idx = append(idx, i)
		}
	}
	return idx
}

func (en *Ensemble) positions(idx []int) []r3.Vec {
	out := make([]r3.Vec, len(idx))
	for k, i := range idx {
		out[k] = en.X[i]
	}
	return out
}

func (en *Ensemble) addBindingSlot() int {
	row := make([]bool, en.Len())
	for i := range row {
		row[i] = true
	}
	en.canBind = append(en.canBind, row)
	return len(en.canBind) - 1
}

// settle moves particle i into a terminal status. It is a no-op for
// particles that are already terminal.
func (en *Ensemble) settle(i int, s Status) bool {
	if en.Status[i] != Active || s == Active {
		return false
	}
	en.Status[i] = s
	en.alive--
	return true
}
