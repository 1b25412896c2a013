package commands

import (
	"regexp"

	"github.com/pkg/errors"

	"github.com/random-geek/MapEdit/pkg/geom"
)

// nameFormat matches fully-qualified node and item names, e.g.
// "default:stone".
var nameFormat = regexp.MustCompile(`^[a-zA-Z0-9_]+:[a-zA-Z0-9_]+$`)

// Args carries the parsed, validated arguments of one command. Optional
// fields are pointers or empty strings.
type Args struct {
	Area      *geom.Area
	Invert    bool
	Offset    *geom.Vec3
	Blockmode bool

	SearchNode  string
	ReplaceNode string
	SearchItem  string
	ReplaceItem string
	MetaKey     string
	MetaValue   string
	SearchObj   string

	ParamVal   int
	Items      bool
	DeleteMeta bool
}

// verify applies the argument checks shared by all commands.
func (a *Args) verify() error {
	if a.Area == nil && a.Invert {
		return errors.New("cannot invert without a defined area")
	}

	checks := []struct {
		param string
		value string
	}{
		{"searchnode", a.SearchNode},
		{"replacenode", a.ReplaceNode},
		{"searchitem", a.SearchItem},
		{"replaceitem", a.ReplaceItem},
		{"searchobj", a.SearchObj},
	}
	for _, c := range checks {
		if c.value == "" {
			continue
		}
		if c.value == "air" {
			continue
		}
		if c.param == "replaceitem" && c.value == "Empty" {
			continue
		}
		if !nameFormat.MatchString(c.value) {
			return errors.Errorf("invalid value for %s: %q", c.param, c.value)
		}
	}

	return nil
}

// nodeBytes returns the byte form of an optional node/item name, or nil
// when the argument was not given.
func nodeBytes(s string) []byte {
	if s == "" {
		return nil
	}
	return []byte(s)
}
