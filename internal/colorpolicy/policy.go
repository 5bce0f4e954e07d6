// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package colorpolicy maps environment names to display colors.
//
// The mapping lives in a YAML file under the user's config directory. Colors
// are drawn from a closed set, so a policy never runs user code. Any problem
// reading the file falls back to the built-in default.
package colorpolicy

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
)

// Color is one of the supported display colors.
type Color string

// Supported colors.
const (
	Black   Color = "black"
	Red     Color = "red"
	Green   Color = "green"
	Yellow  Color = "yellow"
	Blue    Color = "blue"
	Magenta Color = "magenta"
	Cyan    Color = "cyan"
	White   Color = "white"
	Gray    Color = "gray"
)

// ansi holds the 4-bit terminal color for each supported Color.
var ansi = map[Color]lipgloss.Color{
	Black:   lipgloss.Color("0"),
	Red:     lipgloss.Color("1"),
	Green:   lipgloss.Color("2"),
	Yellow:  lipgloss.Color("3"),
	Blue:    lipgloss.Color("4"),
	Magenta: lipgloss.Color("5"),
	Cyan:    lipgloss.Color("6"),
	White:   lipgloss.Color("7"),
	Gray:    lipgloss.Color("8"),
}

var fold = cases.Fold()

// ParseColor matches name case-insensitively against the supported colors.
func ParseColor(name string) (Color, bool) {
	c := Color(fold.String(strings.TrimSpace(name)))
	if c == "grey" {
		c = Gray
	}
	_, ok := ansi[c]
	return c, ok
}

// Available returns the supported color names, sorted.
func Available() []string {
	names := make([]string, 0, len(ansi))
	for c := range ansi {
		names = append(names, string(c))
	}
	sort.Strings(names)
	return names
}

// Styler colorizes an environment name for display.
type Styler interface {
	Lookup(name string) string
}

// Policy is an immutable environment-name to color mapping.
type Policy struct {
	colors   map[string]Color
	renderer *lipgloss.Renderer
}

// New builds a policy from colors. The map is copied.
func New(colors map[string]Color) Policy {
	cp := make(map[string]Color, len(colors))
	for k, v := range colors {
		cp[strings.TrimSpace(k)] = v
	}
	return Policy{colors: cp}
}

// WithRenderer returns a copy of p that styles through r instead of the
// default stdout renderer.
func (p Policy) WithRenderer(r *lipgloss.Renderer) Policy {
	p.renderer = r
	return p
}

// Lookup styles name with its mapped color. Surrounding whitespace is ignored
// for matching but kept in the output. Unmapped names are returned unchanged.
func (p Policy) Lookup(name string) string {
	c, ok := p.colors[strings.TrimSpace(name)]
	if !ok {
		return name
	}
	style := lipgloss.NewStyle()
	if p.renderer != nil {
		style = p.renderer.NewStyle()
	}
	return style.Foreground(ansi[c]).Render(name)
}

// Colors returns a copy of the mapping.
func (p Policy) Colors() map[string]Color {
	cp := make(map[string]Color, len(p.colors))
	for k, v := range p.colors {
		cp[k] = v
	}
	return cp
}

type entry struct {
	env   string
	color Color
}

// defaultEntries is ordered so the generated config file reads in the same
// order as the default environment list.
var defaultEntries = []entry{
	{"Dev2", Yellow},
	{"Dev3", Yellow},
	{"Dev4", Yellow},
	{"Audt", Yellow},
}

// Default returns the built-in policy.
func Default() Policy {
	colors := make(map[string]Color, len(defaultEntries))
	for _, e := range defaultEntries {
		colors[e.env] = e.color
	}
	return New(colors)
}
