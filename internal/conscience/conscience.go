// Package conscience combines choice impact vectors into conscience profiles.
package conscience

import "conscience-engine/internal/model"

// Balanced is returned by DominantTrait when every trait holds the same value.
const Balanced = "balanced"

// Apply adds impact to profile, flooring each trait at zero.
// It returns the traits whose stored value actually changed; zero deltas and
// deltas fully absorbed by the floor are not reported.
func Apply(profile *model.ConscienceProfile, impact model.ConscienceImpact) []model.Trait {
	var changed []model.Trait
	for _, t := range model.Traits() {
		delta := impact.Get(t)
		if delta == 0 {
			continue
		}
		cur := profile.Get(t)
		next := cur + delta
		if next < 0 {
			next = 0
		}
		if next != cur {
			profile.Set(t, next)
			changed = append(changed, t)
		}
	}
	return changed
}

// Applied returns a copy of profile with impact applied.
func Applied(profile model.ConscienceProfile, impact model.ConscienceImpact) model.ConscienceProfile {
	Apply(&profile, impact)
	return profile
}

// Accumulate returns the pointwise sum of two impacts. It never clamps.
func Accumulate(a, b model.ConscienceImpact) model.ConscienceImpact {
	return model.ConscienceImpact{
		Honesty:        a.Honesty + b.Honesty,
		Justice:        a.Justice + b.Justice,
		Empathy:        a.Empathy + b.Empathy,
		Responsibility: a.Responsibility + b.Responsibility,
		Patience:       a.Patience + b.Patience,
		Courage:        a.Courage + b.Courage,
		Wisdom:         a.Wisdom + b.Wisdom,
	}
}

// TotalScore returns the sum of the seven traits.
func TotalScore(profile model.ConscienceProfile) int {
	return model.ConscienceImpact(profile).Sum()
}

// DominantTrait returns the trait with the maximum value. Ties go to the
// earliest trait in priority order. If all traits are equal it returns Balanced.
func DominantTrait(profile model.ConscienceProfile) string {
	traits := model.Traits()
	best := traits[0]
	bestVal := profile.Get(best)
	allEqual := true
	for _, t := range traits[1:] {
		v := profile.Get(t)
		if v != bestVal {
			allEqual = false
		}
		if v > bestVal {
			best, bestVal = t, v
		}
	}
	if allEqual {
		return Balanced
	}
	return string(best)
}
