package assets

import (
	"errors"
	"fmt"
)

// ConfigError reports an asset config that can't be turned into a Registry.
// Path locates the offending value inside the document, e.g.
// "layerMap.ground.ground1"; it is empty for document-level problems.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if joined, ok := e.Err.(interface{ Unwrap() []error }); ok && e.Path == "" {
		return fmt.Sprintf("asset config has %d problems:\n%v", len(joined.Unwrap()), e.Err)
	}
	if e.Path == "" {
		return fmt.Sprintf("asset config: %v", e.Err)
	}
	return fmt.Sprintf("asset config: %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func configErrorf(path, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Path: path, Err: fmt.Errorf(format, args...)}
}

// ErrLookup matches every *LookupError under errors.Is.
var ErrLookup = errors.New("asset lookup failed")

type LookupKind int

const (
	UnknownLayer LookupKind = iota
	UnknownToken
	UnknownCharacter
	UnknownFacing
	UnknownImage
)

func (k LookupKind) String() string {
	switch k {
	case UnknownLayer:
		return "layer"
	case UnknownToken:
		return "tile token"
	case UnknownCharacter:
		return "character"
	case UnknownFacing:
		return "facing"
	case UnknownImage:
		return "image"
	}
	return fmt.Sprintf("LookupKind(%d)", int(k))
}

// LookupError means map data asked for something the asset config doesn't
// declare. Scope names the enclosing table for tokens and facings.
type LookupError struct {
	Kind  LookupKind
	Key   string
	Scope string
}

func (e *LookupError) Error() string {
	switch e.Kind {
	case UnknownToken:
		return fmt.Sprintf("unknown %s %q in layer %q", e.Kind, e.Key, e.Scope)
	case UnknownFacing:
		return fmt.Sprintf("unknown %s %q for character %q", e.Kind, e.Key, e.Scope)
	}
	return fmt.Sprintf("unknown %s %q", e.Kind, e.Key)
}

func (e *LookupError) Is(target error) bool {
	return target == ErrLookup
}
