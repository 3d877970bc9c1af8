// Package backend serializes bytecode units for output.
package backend

import (
	"fmt"
	"slices"
	"strings"

	"github.com/lhaig/modc/internal/bytecode"
)

// Emitter is the interface that all output formats implement.
type Emitter interface {
	// Name returns the emitter name (e.g., "listing", "image")
	Name() string
	// Emit serializes a single unit.
	Emit(u *bytecode.Unit) ([]byte, error)
	// Ext returns the file extension for emitted units, including the dot.
	Ext() string
}

var emitters = map[string]Emitter{
	"listing": &ListingEmitter{},
	"image":   &ImageEmitter{},
}

// Lookup returns the emitter registered under name
func Lookup(name string) (Emitter, error) {
	e, ok := emitters[name]
	if !ok {
		return nil, fmt.Errorf("unknown emitter %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return e, nil
}

// Names lists the registered emitters in sorted order
func Names() []string {
	names := make([]string, 0, len(emitters))
	for name := range emitters {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ListingEmitter writes the human-readable assembly listing
type ListingEmitter struct{}

func (e *ListingEmitter) Name() string { return "listing" }

func (e *ListingEmitter) Ext() string { return ".lst" }

func (e *ListingEmitter) Emit(u *bytecode.Unit) ([]byte, error) {
	return []byte(bytecode.Listing(u)), nil
}
