package event

import "golang.org/x/text/cases"

// Kind identifies what an event does to its entity.
//
// The set is closed: any wire tag outside it resolves to KindUnrecognized,
// which is still a valid event that consumes its sequence number.
type Kind int

const (
	// KindUnrecognized is any tag not in the known set.
	KindUnrecognized Kind = iota
	// KindCreated initializes identity, classification and the accumulator.
	KindCreated
	// KindIncrease adds a delta to the accumulator.
	KindIncrease
	// KindDecrease subtracts a delta from the accumulator.
	KindDecrease
	// KindTerminal overwrites the status and records the end time.
	KindTerminal
	// KindRelabel replaces the mission label.
	KindRelabel
)

// Wire tags for the known kinds.
const (
	TagCreated      = "RocketLaunched"
	TagIncrease     = "RocketSpeedIncreased"
	TagDecrease     = "RocketSpeedDecreased"
	TagTerminal     = "RocketExploded"
	TagRelabel      = "RocketMissionChanged"
	TagUnrecognized = "Unknown"
)

var kindTags = [...]string{
	KindUnrecognized: TagUnrecognized,
	KindCreated:      TagCreated,
	KindIncrease:     TagIncrease,
	KindDecrease:     TagDecrease,
	KindTerminal:     TagTerminal,
	KindRelabel:      TagRelabel,
}

// foldedTags maps the case-folded wire tag to its kind. Built once at init.
var foldedTags = func() map[string]Kind {
	m := make(map[string]Kind, len(kindTags))
	for k, tag := range kindTags {
		if Kind(k) == KindUnrecognized {
			continue
		}
		m[fold(tag)] = Kind(k)
	}
	return m
}()

// fold applies full Unicode case folding. A Caser is stateful, so a fresh
// one is used per call.
func fold(s string) string {
	return cases.Fold().String(s)
}

// ParseKind resolves a wire tag to a Kind by case-insensitive exact match.
// Unknown tags, including the empty string, yield KindUnrecognized.
func ParseKind(tag string) Kind {
	if k, ok := foldedTags[fold(tag)]; ok {
		return k
	}
	return KindUnrecognized
}

// String returns the canonical wire tag.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindTags) {
		return TagUnrecognized
	}
	return kindTags[k]
}

// Known reports whether k is one of the recognized kinds.
func (k Kind) Known() bool {
	return k > KindUnrecognized && int(k) < len(kindTags)
}
