// Package stat7 implements the seven-dimensional coordinate system that
// locates every entity in the multiverse: realm, lineage, adjacency,
// horizon, resonance, velocity, density.
package stat7

import (
	"bytes"
	"encoding/json"
	"fmt"

	"multiverse/internal/errors"
)

// MaxHorizon bounds the horizon dimension.
const MaxHorizon = 6

// GaugeMax bounds the three gauge dimensions (resonance, velocity, density).
const GaugeMax = 100

// Address is an immutable 7D coordinate. Equality is structural.
type Address struct {
	Realm     int `json:"realm"`
	Lineage   int `json:"lineage"`
	Adjacency int `json:"adjacency"`
	Horizon   int `json:"horizon"`
	Resonance int `json:"resonance"`
	Velocity  int `json:"velocity"`
	Density   int `json:"density"`
}

// fieldOrder is the canonical serialization order of the seven dimensions.
var fieldOrder = []string{"realm", "lineage", "adjacency", "horizon", "resonance", "velocity", "density"}

// New validates all seven dimensions and returns the address.
func New(realm, lineage, adjacency, horizon, resonance, velocity, density int) (Address, error) {
	a := Address{
		Realm:     realm,
		Lineage:   lineage,
		Adjacency: adjacency,
		Horizon:   horizon,
		Resonance: resonance,
		Velocity:  velocity,
		Density:   density,
	}
	if err := a.Validate(); err != nil {
		return Address{}, err
	}
	return a, nil
}

// Validate checks every dimension against its range.
func (a Address) Validate() error {
	switch {
	case a.Realm < 0:
		return errors.New(errors.CodeInvalidAddress, "realm must be >= 0, got %d", a.Realm)
	case a.Lineage < 0:
		return errors.New(errors.CodeInvalidAddress, "lineage must be >= 0, got %d", a.Lineage)
	case a.Adjacency < 0:
		return errors.New(errors.CodeInvalidAddress, "adjacency must be >= 0, got %d", a.Adjacency)
	case a.Horizon < 0 || a.Horizon > MaxHorizon:
		return errors.New(errors.CodeInvalidAddress, "horizon must be in [0,%d], got %d", MaxHorizon, a.Horizon)
	case a.Resonance < 0 || a.Resonance > GaugeMax:
		return errors.New(errors.CodeInvalidAddress, "resonance must be in [0,%d], got %d", GaugeMax, a.Resonance)
	case a.Velocity < 0 || a.Velocity > GaugeMax:
		return errors.New(errors.CodeInvalidAddress, "velocity must be in [0,%d], got %d", GaugeMax, a.Velocity)
	case a.Density < 0 || a.Density > GaugeMax:
		return errors.New(errors.CodeInvalidAddress, "density must be in [0,%d], got %d", GaugeMax, a.Density)
	}
	return nil
}

// AdvanceOrbit returns a copy with lineage incremented. All other
// dimensions are preserved.
func (a Address) AdvanceOrbit() Address {
	a.Lineage++
	return a
}

// Map returns the canonical mapping of all seven dimensions. The address is
// re-validated so a corrupted value never serializes.
func (a Address) Map() (map[string]int, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return map[string]int{
		"realm":     a.Realm,
		"lineage":   a.Lineage,
		"adjacency": a.Adjacency,
		"horizon":   a.Horizon,
		"resonance": a.Resonance,
		"velocity":  a.Velocity,
		"density":   a.Density,
	}, nil
}

// MarshalJSON emits the seven keys in canonical order.
func (a Address) MarshalJSON() ([]byte, error) {
	m, err := a.Map()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range fieldOrder {
		if i > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(&buf, "%q:%d", key, m[key])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes and validates an address.
func (a *Address) UnmarshalJSON(data []byte) error {
	type plain Address
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return errors.Wrap(errors.CodeInvalidAddress, err, "decoding address")
	}
	decoded := Address(p)
	if err := decoded.Validate(); err != nil {
		return err
	}
	*a = decoded
	return nil
}

// Tuple returns the dimensions as a fixed-order array, used by the
// universe hash.
func (a Address) Tuple() [7]int {
	return [7]int{a.Realm, a.Lineage, a.Adjacency, a.Horizon, a.Resonance, a.Velocity, a.Density}
}

// Signature renders the compact coordinate string used in dialogue
// location context, e.g. "R0.L3.A1002.H1.RS55.V40.D70".
func (a Address) Signature() string {
	return fmt.Sprintf("R%d.L%d.A%d.H%d.RS%d.V%d.D%d",
		a.Realm, a.Lineage, a.Adjacency, a.Horizon, a.Resonance, a.Velocity, a.Density)
}
