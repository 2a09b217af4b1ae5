package bundle

import (
	"fmt"
	"strings"
)

// APIMode selects the contract between a bundle and its client.
type APIMode int

// API modes.
const (
	// Dynamic bundles publish their layout at run time through an embedded
	// config record and symbol table. Weights are loaded from the binary file.
	Dynamic APIMode = iota
	// Static bundles publish their layout as header macros so clients can
	// allocate memory statically. Weights are also emitted as C array text.
	Static
)

// String returns the mode name accepted by ParseAPIMode.
func (m APIMode) String() string {
	switch m {
	case Dynamic:
		return "dynamic"
	case Static:
		return "static"
	default:
		return fmt.Sprintf("APIMode(%d)", int(m))
	}
}

// ParseAPIMode parses "dynamic" or "static". The empty string is Dynamic.
func ParseAPIMode(s string) (APIMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "dynamic":
		return Dynamic, nil
	case "static":
		return Static, nil
	default:
		return Dynamic, fmt.Errorf("unknown bundle API %q (want dynamic or static)", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m APIMode) MarshalText() ([]byte, error) {
	if _, err := m.artifacts(); err != nil {
		return nil, err
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *APIMode) UnmarshalText(text []byte) error {
	mode, err := ParseAPIMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// artifactSet is everything that differs between API modes. The pipeline
// consults it instead of testing the mode.
type artifactSet struct {
	// embedLayout emits <entry>SymbolTable and <entry>_config into the module.
	embedLayout bool
	// textWeights emits the .inc file next to the binary weights.
	textWeights bool
	// offsetMacros defines one header macro per placeholder.
	offsetMacros bool
	// commonDefines is the shared section of the header.
	commonDefines string
	// headerAPI renders the mode specific part of the header API section.
	headerAPI func(h *headerData) string
}

func (m APIMode) artifacts() (artifactSet, error) {
	switch m {
	case Dynamic:
		return artifactSet{
			embedLayout:   true,
			commonDefines: dynamicCommonDefines,
			headerAPI:     dynamicHeaderAPI,
		}, nil
	case Static:
		return artifactSet{
			textWeights:   true,
			offsetMacros:  true,
			commonDefines: staticCommonDefines,
			headerAPI:     staticHeaderAPI,
		}, nil
	default:
		return artifactSet{}, invariantf("select artifacts", "unknown API mode %d", int(m))
	}
}
