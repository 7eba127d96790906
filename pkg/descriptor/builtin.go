package descriptor

import (
	"fmt"
	"math"

	"github.com/tadventure/engine/pkg/state"
)

func bmi(stats Stats) (float64, bool) {
	if !stats.Has(state.StatHeight) || !stats.Has(state.StatWeight) {
		return 0, false
	}
	m := stats.Get(state.StatHeight) / 100
	return math.Round(stats.Get(state.StatWeight)/(m*m)*10) / 10, true
}

func defaultBody(stats Stats) string {
	b, ok := bmi(stats)
	if !ok {
		return "of indeterminate build"
	}
	var base string
	switch {
	case b < 18.5:
		base = "underweight"
	case b < 25:
		base = "average weight"
	case b < 30:
		base = "overweight"
	default:
		base = "obese"
	}
	if stats.Get(state.StatMuscleMass) > 40 {
		base = "muscular, " + base
	}
	return base
}

func fitnessBody(stats Stats) string {
	if !stats.Has(state.StatFitnessLevel) || stats.Get(state.StatFitnessLevel) == 0 {
		return "of unknown fitness level"
	}
	var fitness string
	switch level := stats.Get(state.StatFitnessLevel); {
	case level < 20:
		fitness = "out of shape"
	case level < 40:
		fitness = "somewhat fit"
	case level < 60:
		fitness = "fairly fit"
	case level < 80:
		fitness = "very fit"
	default:
		fitness = "extremely fit"
	}
	if stats.Has(state.StatMuscleMass) && stats.Get(state.StatMuscleMass) != 0 {
		switch mass := stats.Get(state.StatMuscleMass); {
		case mass < 20:
			return fitness + " with little muscle definition"
		case mass < 40:
			return fitness + " with moderate muscle tone"
		case mass < 60:
			return fitness + " with well-defined muscles"
		default:
			return fitness + " with impressive musculature"
		}
	}
	return fitness
}

func simpleBody(stats Stats) string {
	b, ok := bmi(stats)
	if !ok {
		return "of average build"
	}
	switch {
	case b < 20:
		return "thin"
	case b < 25:
		return "average build"
	case b < 30:
		return "heavyset"
	default:
		return "large"
	}
}

func defaultEnergy(stats Stats) string {
	if !stats.Has(state.StatEnergy) {
		return "of unknown energy level"
	}
	switch e := stats.Get(state.StatEnergy); {
	case e < 20:
		return "exhausted"
	case e < 40:
		return "tired"
	case e < 60:
		return "somewhat energetic"
	case e < 80:
		return "energetic"
	default:
		return "very energetic"
	}
}

func detailedEnergy(stats Stats) string {
	var desc string
	switch {
	case !stats.Has(state.StatEnergy):
		desc = "of unknown energy level"
	case stats.Get(state.StatEnergy) < 20:
		desc = "completely drained"
	case stats.Get(state.StatEnergy) < 40:
		desc = "noticeably fatigued"
	case stats.Get(state.StatEnergy) < 60:
		desc = "moderately energetic"
	case stats.Get(state.StatEnergy) < 80:
		desc = "quite energetic"
	default:
		desc = "bursting with energy"
	}
	if stats.Has(state.StatMotivation) {
		switch m := stats.Get(state.StatMotivation); {
		case m < 30:
			return fmt.Sprintf("%s but unmotivated", desc)
		case m < 60:
			return fmt.Sprintf("%s and somewhat motivated", desc)
		default:
			return fmt.Sprintf("%s and highly motivated", desc)
		}
	}
	return desc
}

func simpleEnergy(stats Stats) string {
	if !stats.Has(state.StatEnergy) {
		return "neutral"
	}
	switch e := stats.Get(state.StatEnergy); {
	case e < 30:
		return "tired"
	case e < 70:
		return "alert"
	default:
		return "energetic"
	}
}
