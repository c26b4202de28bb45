package ratelimit

import (
	"errors"
	"fmt"
	"strings"
)

// Strategy names a concurrency strategy for sharing per-key window state.
type Strategy string

const (
	// StrategyCoarse guards every key with one registry-wide lock.
	StrategyCoarse Strategy = "coarse"
	// StrategyCloned reads, clones and overwrites windows in a lock-free map.
	// It is not atomic per key; see ClonedWindow.
	StrategyCloned Strategy = "cloned"
	// StrategyPerKey guards each key's window with its own lock.
	StrategyPerKey Strategy = "perkey"
	// StrategyRing keeps each key's window in a lock-free ring buffer.
	StrategyRing Strategy = "ring"
)

// ErrUnknownStrategy is returned for strategy names that are not recognized.
var ErrUnknownStrategy = errors.New("unknown strategy")

// Strategies returns every supported strategy, reference-correct one first.
func Strategies() []Strategy {
	return []Strategy{StrategyPerKey, StrategyCoarse, StrategyRing, StrategyCloned}
}

// ParseStrategy converts a strategy name into a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(strings.ToLower(strings.TrimSpace(name)))

	switch s {
	case StrategyCoarse, StrategyCloned, StrategyPerKey, StrategyRing:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// New constructs the limiter implementing strategy s.
func New[K comparable](s Strategy, opts ...Option) (Limiter[K], error) {
	switch s {
	case StrategyCoarse:
		return NewCoarseLock[K](opts...), nil
	case StrategyCloned:
		return NewClonedWindow[K](opts...), nil
	case StrategyPerKey:
		return NewPerKeyLock[K](opts...), nil
	case StrategyRing:
		return NewRingBuffer[K](opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}
