package config

import (
	"time"

	"github.com/dshills/keywarp/internal/button"
	"github.com/dshills/keywarp/internal/input/key"
)

// Layout is a fully resolved button map: what the keymap and loop consume.
// No alias references survive compilation.
type Layout struct {
	// Base is the initial base layer.
	Base string

	// FallThrough controls whether unmapped presses pass through raw.
	FallThrough bool

	// ComposeKey is the leader emitted ahead of compose sequences.
	ComposeKey key.Code

	// Layers maps layer tags to keycode bindings.
	Layers map[string]map[key.Code]*button.Button
}

// Defaults used when a layout file leaves a setting out.
const (
	DefaultTapHoldDelay = 200 * time.Millisecond
	DefaultMultiTapGap  = 180 * time.Millisecond
	DefaultComposeKey   = key.CodeCompose
)

// settings carries the per-file tunables picked up during compilation.
type settings struct {
	tapHoldDelay time.Duration
	multiTapGap  time.Duration
	macroDelay   time.Duration
	composeKey   key.Code
}

func defaultSettings() settings {
	return settings{
		tapHoldDelay: DefaultTapHoldDelay,
		multiTapGap:  DefaultMultiTapGap,
		composeKey:   DefaultComposeKey,
	}
}
