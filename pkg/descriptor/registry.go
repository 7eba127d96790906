// Package descriptor maps character stats to descriptive prose. Authors
// select a descriptor per character per axis (body, energy) and may
// register their own functions.
package descriptor

import (
	"errors"
	"fmt"

	"github.com/tadventure/engine/pkg/state"
)

const (
	AxisBody   = "body"
	AxisEnergy = "energy"
)

// ErrUnknownDescriptor is returned when resolving a name that was never
// registered for the requested axis.
var ErrUnknownDescriptor = errors.New("unknown descriptor")

// Fn renders a description from a stats snapshot. Descriptor functions are
// pure; they must not mutate anything.
type Fn func(stats Stats) string

// Stats is the read-only snapshot handed to descriptor functions.
type Stats map[string]float64

func (s Stats) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Get returns the stat value, or 0 when unset.
func (s Stats) Get(name string) float64 {
	return s[name]
}

// Registry is the name-indexed store of descriptor functions. Built-ins
// are seeded at construction; registration may shadow them but "default"
// always resolves.
type Registry struct {
	fns   map[string]map[string]Fn
	order map[string][]string
}

func NewRegistry() *Registry {
	r := &Registry{
		fns:   make(map[string]map[string]Fn),
		order: make(map[string][]string),
	}
	r.Register(AxisBody, "default", defaultBody)
	r.Register(AxisBody, "fitness", fitnessBody)
	r.Register(AxisBody, "simple", simpleBody)
	r.Register(AxisEnergy, "default", defaultEnergy)
	r.Register(AxisEnergy, "detailed", detailedEnergy)
	r.Register(AxisEnergy, "simple", simpleEnergy)
	return r
}

// Register inserts or overwrites a descriptor for an axis.
func (r *Registry) Register(axis, name string, fn Fn) {
	if r.fns[axis] == nil {
		r.fns[axis] = make(map[string]Fn)
	}
	if _, exists := r.fns[axis][name]; !exists {
		r.order[axis] = append(r.order[axis], name)
	}
	r.fns[axis][name] = fn
}

// Resolve runs the named descriptor against a stats snapshot.
func (r *Registry) Resolve(axis, name string, stats Stats) (string, error) {
	fn, ok := r.fns[axis][name]
	if !ok {
		return "", fmt.Errorf("%w: %s/%s", ErrUnknownDescriptor, axis, name)
	}
	return fn(stats), nil
}

// List returns registered names for an axis in registration order. An
// empty axis lists every axis's names.
func (r *Registry) List(axis string) []string {
	if axis != "" {
		return append([]string(nil), r.order[axis]...)
	}
	var all []string
	for _, a := range []string{AxisBody, AxisEnergy} {
		all = append(all, r.order[a]...)
	}
	for a, names := range r.order {
		if a != AxisBody && a != AxisEnergy {
			all = append(all, names...)
		}
	}
	return all
}

// Describe composes the two-axis character description. bodyName and
// energyName override the character's own selections when non-empty.
func (r *Registry) Describe(c *state.Character, bodyName, energyName string) (string, error) {
	if bodyName == "" {
		bodyName = c.DescriptorFor(AxisBody)
	}
	if energyName == "" {
		energyName = c.DescriptorFor(AxisEnergy)
	}
	stats := Snapshot(c)
	body, err := r.Resolve(AxisBody, bodyName, stats)
	if err != nil {
		return "", err
	}
	energy, err := r.Resolve(AxisEnergy, energyName, stats)
	if err != nil {
		return "", err
	}
	out := fmt.Sprintf("%s is %s and appears %s.", c.Name, body, energy)
	if stats.Has(state.StatMotivation) {
		out += fmt.Sprintf(" They currently have %.0f%% motivation.", stats.Get(state.StatMotivation))
	}
	return out, nil
}

// Snapshot copies a character's stats into the read-only form descriptor
// functions receive.
func Snapshot(c *state.Character) Stats {
	s := make(Stats, len(c.Stats))
	for k, v := range c.Stats {
		s[k] = v
	}
	return s
}
