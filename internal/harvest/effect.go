package harvest

import (
	"encoding/json"
	"errors"
	"fmt"
)

type EffectKind string

const (
	EffectConstant     EffectKind = "constant"
	EffectProportional EffectKind = "proportional"
)

// Field names a team counter an effect can read.
type Field string

const (
	FieldCoins Field = "coins"
	FieldCrops Field = "crops"
)

// Effect is a resource delta expressed as data so a catalog can be stored
// and sent over the wire. A constant effect yields Value. A proportional
// effect yields team[Field] * Num / Den, truncated toward zero.
type Effect struct {
	Kind  EffectKind `json:"kind"`
	Value int        `json:"value,omitempty"`
	Field Field      `json:"field,omitempty"`
	Num   int        `json:"num,omitempty"`
	Den   int        `json:"den,omitempty"`
}

func Const(v int) Effect {
	return Effect{Kind: EffectConstant, Value: v}
}

// Per returns an effect proportional to a team counter, e.g.
// Per(FieldCrops, 40, 1) is 40 coins per crop and Per(FieldCoins, -1, 2)
// halves the team's coins.
func Per(field Field, num, den int) Effect {
	return Effect{Kind: EffectProportional, Field: field, Num: num, Den: den}
}

// Eval computes the delta against the team's current counters.
func (e Effect) Eval(t *TeamState) int {
	switch e.Kind {
	case EffectProportional:
		var base int
		switch e.Field {
		case FieldCoins:
			base = t.Coins
		case FieldCrops:
			base = t.Crops
		}
		den := e.Den
		if den == 0 {
			den = 1
		}
		return base * e.Num / den
	default:
		return e.Value
	}
}

func (e Effect) Validate() error {
	switch e.Kind {
	case EffectConstant, "":
		return nil
	case EffectProportional:
		if e.Field != FieldCoins && e.Field != FieldCrops {
			return fmt.Errorf("unknown field %q", e.Field)
		}
		if e.Den == 0 {
			return errors.New("zero denominator")
		}
		return nil
	default:
		return fmt.Errorf("unknown effect kind %q", e.Kind)
	}
}

// MarshalJSON writes constants as bare numbers, matching the catalog files.
func (e Effect) MarshalJSON() ([]byte, error) {
	if e.Kind == EffectConstant || e.Kind == "" {
		return json.Marshal(e.Value)
	}
	type plain Effect
	return json.Marshal(plain(e))
}

// UnmarshalJSON accepts a bare number as a constant effect.
func (e *Effect) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*e = Const(n)
		return nil
	}
	type plain Effect
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("decoding effect: %w", err)
	}
	*e = Effect(p)
	if e.Kind == "" {
		e.Kind = EffectConstant
	}
	return nil
}
