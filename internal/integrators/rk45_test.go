package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/spinsim/internal/dynamo"
)

// precession rotates a unit vector about z at angular rate omega,
// the undamped single-spin limit.
type precession struct{ omega float64 }

func (p *precession) StateDim() int { return 3 }

func (p *precession) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{-p.omega * x[1], p.omega * x[0], 0}
}

func TestRK45_Step(t *testing.T) {
	integrator := NewRK45()
	dyn := &precession{omega: 1}
	x := dynamo.State{1.0, 0.0, 0.0}
	dt := 0.01

	for i := 0; i < 1000; i++ {
		x = integrator.Step(dyn, x, float64(i)*dt, dt)
	}

	if !x.IsValid() {
		t.Fatal("RK45 produced invalid state")
	}
	if math.Abs(x[0]-math.Cos(10)) > 1e-8 || math.Abs(x[1]-math.Sin(10)) > 1e-8 {
		t.Errorf("phase error: got [%.9f %.9f], want [%.9f %.9f]", x[0], x[1], math.Cos(10), math.Sin(10))
	}
}

func TestRK45_NormConservation(t *testing.T) {
	integrator := NewRK45()
	dyn := &precession{omega: 2 * math.Pi}
	x := dynamo.State{0.6, 0.0, 0.8}
	dt := 0.001

	for i := 0; i < 10000; i++ {
		x = integrator.Step(dyn, x, float64(i)*dt, dt)
	}

	drift := x.MaxNormDrift()
	if drift > 1e-9 {
		t.Errorf("RK45 norm drift too high: %e", drift)
	}
	if x[2] != 0.8 {
		t.Errorf("z component changed: %v", x[2])
	}
}

func TestRK45_AdaptiveStep(t *testing.T) {
	integrator := NewRK45()
	dyn := &precession{omega: 1}
	x0 := dynamo.State{1.0, 0.0, 0.0}

	_, newDt, ok, err := integrator.StepAdaptive(dyn, x0, 0, 0.5, 1e-12)
	if err != nil {
		t.Fatalf("StepAdaptive returned error: %v", err)
	}
	if ok {
		t.Error("a 0.5 step should not meet a 1e-12 tolerance")
	}
	if newDt <= 0 || newDt >= 0.5 {
		t.Errorf("expected a shrunk dt for tight tolerance, got %g", newDt)
	}

	x, loose, ok, _ := integrator.StepAdaptive(dyn, x0, 0, 1e-4, 1e-3)
	if !ok || !x.IsValid() {
		t.Errorf("small step rejected: ok=%v x=%v", ok, x)
	}
	if loose <= 1e-4 {
		t.Errorf("expected a grown dt for loose tolerance, got %g", loose)
	}
}

func TestRK45_VsRK4_Accuracy(t *testing.T) {
	rk4 := NewRK4()
	rk45 := NewRK45()
	dyn := &precession{omega: 1}

	x4 := dynamo.State{1.0, 0.0, 0.0}
	x45 := x4.Clone()
	dt := 0.1

	for i := 0; i < 100; i++ {
		x4 = rk4.Step(dyn, x4, float64(i)*dt, dt)
		x45 = rk45.Step(dyn, x45, float64(i)*dt, dt)
	}

	want := dynamo.State{math.Cos(10), math.Sin(10), 0}
	e4 := x4.Distance(want)
	e45 := x45.Distance(want)
	t.Logf("RK4 error %.3e, RK45 error %.3e", e4, e45)

	if e45 > e4 {
		t.Errorf("RK45 (%.3e) less accurate than RK4 (%.3e)", e45, e4)
	}
}
