package gesturebrainz

import "fmt"

// ResolutionStrategy selects how competing hypotheses are settled when
// one fires while conflicting ones are live.
type ResolutionStrategy string

const (
	// StrategyPriority ranks by score: base priority band plus the
	// confidence bonus.
	StrategyPriority ResolutionStrategy = "priority"
	// StrategyFirstDetected keeps the hypothesis that started earliest.
	StrategyFirstDetected ResolutionStrategy = "first_detected"
	// StrategyLastDetected keeps the hypothesis that started latest.
	StrategyLastDetected ResolutionStrategy = "last_detected"
	// StrategyDefer declines to pick: the conflict is reported as an
	// event and the session stays unresolved.
	StrategyDefer ResolutionStrategy = "defer"
)

// ParseResolutionStrategy converts a config string into a strategy.
func ParseResolutionStrategy(s string) (ResolutionStrategy, error) {
	switch ResolutionStrategy(s) {
	case StrategyPriority, StrategyFirstDetected, StrategyLastDetected, StrategyDefer:
		return ResolutionStrategy(s), nil
	default:
		return "", fmt.Errorf("unknown resolution strategy %q (valid: priority, first_detected, last_detected, defer)", s)
	}
}

// conflictPairs lists the gesture pairs that cannot both win. Pairs not
// listed here coexist without triggering resolution.
var conflictPairs = map[[2]GestureType]struct{}{
	pairKey(GestureSingleTap, GestureDoubleTap):               {},
	pairKey(GestureSingleTap, GestureLongPress):               {},
	pairKey(GestureDoubleTap, GestureLongPress):               {},
	pairKey(GestureHorizontalSeek, GestureVerticalVolume):     {},
	pairKey(GestureHorizontalSeek, GestureVerticalBrightness): {},
}

func pairKey(a, b GestureType) [2]GestureType {
	if typeOrdinal(b) < typeOrdinal(a) {
		a, b = b, a
	}
	return [2]GestureType{a, b}
}

// Conflicts reports whether two gesture types are mutually exclusive.
func Conflicts(a, b GestureType) bool {
	if a == b {
		return false
	}
	_, ok := conflictPairs[pairKey(a, b)]
	return ok
}

// Resolution is the outcome of submitting a fired hypothesis against
// the session's live set.
type Resolution struct {
	// Winner drives the session from here on. Nil when Deferred.
	Winner *GestureHypothesis
	// Losers are every live hypothesis other than the winner. They are
	// discarded without ever reporting a gesture of their own.
	Losers []*GestureHypothesis
	// Conflict lists the firing type plus everything it conflicted
	// with, in priority order. Empty when the firing hypothesis had no
	// rival.
	Conflict []GestureType
	// Deferred is set when the strategy declines to pick.
	Deferred bool
}

// Resolve settles a firing hypothesis against the live set. The firing
// hypothesis must already be in the set. Resolve never mutates the set;
// the caller applies the outcome.
func Resolve(set *ActiveGestureSet, firing *GestureHypothesis, strategy ResolutionStrategy) Resolution {
	var conflicting []*GestureHypothesis
	for _, h := range set.All() {
		if h.Type != firing.Type && Conflicts(h.Type, firing.Type) {
			conflicting = append(conflicting, h)
		}
	}

	var conflictTypes []GestureType
	if len(conflicting) > 0 {
		for _, t := range gestureTypeOrder {
			if t == firing.Type {
				conflictTypes = append(conflictTypes, t)
				continue
			}
			for _, h := range conflicting {
				if h.Type == t {
					conflictTypes = append(conflictTypes, t)
					break
				}
			}
		}
	}

	if len(conflicting) > 0 && strategy == StrategyDefer {
		return Resolution{Conflict: conflictTypes, Deferred: true}
	}

	candidates := append([]*GestureHypothesis{firing}, conflicting...)
	winner := pickWinner(candidates, strategy)

	var losers []*GestureHypothesis
	for _, h := range set.All() {
		if h != winner {
			losers = append(losers, h)
		}
	}
	return Resolution{Winner: winner, Losers: losers, Conflict: conflictTypes}
}

func pickWinner(candidates []*GestureHypothesis, strategy ResolutionStrategy) *GestureHypothesis {
	if len(candidates) == 0 {
		return nil
	}
	best := candidates[0]
	for _, h := range candidates[1:] {
		if beats(h, best, strategy) {
			best = h
		}
	}
	return best
}

// beats reports whether a outranks b under the strategy. Ties fall
// through score and finally the fixed type order, so the outcome never
// depends on map iteration.
func beats(a, b *GestureHypothesis, strategy ResolutionStrategy) bool {
	switch strategy {
	case StrategyFirstDetected:
		if !a.StartedAt.Equal(b.StartedAt) {
			return a.StartedAt.Before(b.StartedAt)
		}
	case StrategyLastDetected:
		if !a.StartedAt.Equal(b.StartedAt) {
			return a.StartedAt.After(b.StartedAt)
		}
	default:
		if sa, sb := a.Score(), b.Score(); sa != sb {
			return sa > sb
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.StartedAt.Equal(b.StartedAt) {
			return a.StartedAt.Before(b.StartedAt)
		}
		return typeOrdinal(a.Type) < typeOrdinal(b.Type)
	}
	if sa, sb := a.Score(), b.Score(); sa != sb {
		return sa > sb
	}
	return typeOrdinal(a.Type) < typeOrdinal(b.Type)
}
