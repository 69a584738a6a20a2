package integrators

import (
	"sort"

	"github.com/san-kum/spinsim/internal/dynamo"
)

// Default is the stepper used when none is configured.
const Default = "rk45"

var registry = map[string]func() dynamo.Integrator{
	"rk45":  func() dynamo.Integrator { return NewRK45() },
	"rk4":   func() dynamo.Integrator { return NewRK4() },
	"euler": func() dynamo.Integrator { return NewEuler() },
}

// New returns a fresh integrator by name. An empty name selects Default.
func New(name string) (dynamo.Integrator, error) {
	if name == "" {
		name = Default
	}
	fn, ok := registry[name]
	if !ok {
		return nil, dynamo.Configf("solver.integrator", "unknown integrator %q (available: %v)", name, Names())
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
