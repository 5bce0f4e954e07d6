// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package report renders collected deployment statuses.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"sigs.k8s.io/yaml"

	"github.com/confighub/env-status/internal/clierr"
	"github.com/confighub/env-status/internal/colorpolicy"
	"github.com/confighub/env-status/internal/statussvc"
)

// Column widths. The branch column takes the remainder of the line.
const (
	EnvWidth      = 5
	DeployerWidth = 20
	FinishWidth   = 20
	StateWidth    = 15
)

// Formats accepted by Write.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Row is the serialized form of one environment.
type Row struct {
	Environment string `json:"environment"`
	DeployedBy  string `json:"deployedBy,omitempty"`
	FinishDate  string `json:"finishDate,omitempty"`
	State       string `json:"state,omitempty"`
	Status      string `json:"status,omitempty"`
	Branch      string `json:"branch,omitempty"`
	BuildID     int64  `json:"buildId,omitempty"`
	WebURL      string `json:"webUrl,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Rows converts statuses for serialization, keeping order.
func Rows(statuses []statussvc.DeploymentStatus) []Row {
	rows := make([]Row, 0, len(statuses))
	for _, s := range statuses {
		if s.Failed() {
			rows = append(rows, Row{Environment: s.Environment, Error: s.Err.Error()})
			continue
		}
		rows = append(rows, Row{
			Environment: s.Environment,
			DeployedBy:  s.DeployedBy,
			FinishDate:  statussvc.FormatFinishDate(s.FinishDate),
			State:       s.State,
			Status:      s.Status,
			Branch:      s.Branch,
			BuildID:     s.BuildID,
			WebURL:      s.WebURL,
		})
	}
	return rows
}

// pad left-aligns s in a field of width display cells. Longer values are
// kept whole so no data is lost.
func pad(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// Renderer writes the table view.
type Renderer struct {
	w      io.Writer
	styler colorpolicy.Styler
	header lipgloss.Style
	failed lipgloss.Style
}

// NewRenderer creates a table renderer. Header and failure styling go
// through r; environment names go through styler.
func NewRenderer(w io.Writer, r *lipgloss.Renderer, styler colorpolicy.Styler) *Renderer {
	return &Renderer{
		w:      w,
		styler: styler,
		header: r.NewStyle().Bold(true),
		failed: r.NewStyle().Foreground(lipgloss.Color("1")),
	}
}

// Render writes the header, the separator and one line per status.
func Render(w io.Writer, statuses []statussvc.DeploymentStatus, styler colorpolicy.Styler) error {
	return NewRenderer(w, lipgloss.NewRenderer(w), styler).Render(statuses)
}

// Render writes the header, the separator and one line per status.
func (r *Renderer) Render(statuses []statussvc.DeploymentStatus) error {
	header := line("Env:", "Deployed by:", "Finish Date:", "State:", "Branch:")
	sep := line("----", "------------", "------------", "------", "-------")
	if _, err := fmt.Fprintln(r.w, r.header.Render(header)); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(r.w, sep); err != nil {
		return err
	}

	for _, s := range statuses {
		if _, err := fmt.Fprintln(r.w, r.row(s)); err != nil {
			return err
		}
	}
	return nil
}

// line lays out the five columns. The environment cell is bracketed, so
// header cells get the same two extra characters.
func line(env, deployer, finish, state, branch string) string {
	return fmt.Sprintf(" %s   %s %s %s %s",
		pad(env, EnvWidth), pad(deployer, DeployerWidth), pad(finish, FinishWidth), pad(state, StateWidth), branch)
}

func (r *Renderer) row(s statussvc.DeploymentStatus) string {
	env := "[" + r.styler.Lookup(pad(s.Environment, EnvWidth)) + "]"
	if s.Failed() {
		return fmt.Sprintf("%s  %s", env, r.failed.Render("FAILED: "+clierr.Short(s.Err)))
	}
	return fmt.Sprintf("%s  %s %s %s %s",
		env,
		pad(s.DeployedBy, DeployerWidth),
		pad(statussvc.FormatFinishDate(s.FinishDate), FinishWidth),
		pad(s.State, StateWidth),
		s.Branch,
	)
}

// RenderJSON writes statuses as an indented JSON array.
func RenderJSON(w io.Writer, statuses []statussvc.DeploymentStatus) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Rows(statuses))
}

// RenderYAML writes statuses as a YAML list.
func RenderYAML(w io.Writer, statuses []statussvc.DeploymentStatus) error {
	out, err := yaml.Marshal(Rows(statuses))
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = w.Write(out)
	return err
}

// Write renders statuses in format. An empty format means table.
func Write(w io.Writer, format string, statuses []statussvc.DeploymentStatus, styler colorpolicy.Styler) error {
	switch format {
	case "", FormatTable:
		return Render(w, statuses, styler)
	case FormatJSON:
		return RenderJSON(w, statuses)
	case FormatYAML:
		return RenderYAML(w, statuses)
	default:
		return fmt.Errorf("unsupported output format %q (table, json, yaml)", format)
	}
}
