// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package eventtimer times the named phases of a run, and renders them as a table.
package eventtimer

import (
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
)

// Event is a finished phase.
type Event struct {
	Name     string
	Start    time.Time
	Duration time.Duration
}

// Timer of consecutive phases. Add starts a new phase, ending the current one, and Finish ends the last.
//
// It is safe for concurrent use.
type Timer struct {
	mu      sync.Mutex
	now     func() time.Time
	events  []Event
	current string
	start   time.Time
	running bool
}

// New returns an empty Timer.
func New() *Timer {
	return &Timer{now: time.Now}
}

// Add ends the current phase, if any, and starts a new one with the given name.
func (t *Timer) Add(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.lockedEnd(now)
	t.current, t.start, t.running = name, now, true
}

// Finish ends the current phase, if any.
func (t *Timer) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lockedEnd(t.now())
}

func (t *Timer) lockedEnd(now time.Time) {
	if !t.running {
		return
	}
	t.events = append(t.events, Event{Name: t.current, Start: t.start, Duration: now.Sub(t.start)})
	t.running = false
}

// Events returns a copy of the finished phases, in order.
func (t *Timer) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Event(nil), t.events...)
}

// Total duration of the finished phases.
func (t *Timer) Total() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	var total time.Duration
	for _, e := range t.events {
		total += e.Duration
	}
	return total
}

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)
	oddRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFF")).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999")).
			PaddingLeft(1).PaddingRight(1)
)

// NewTable returns a table with the style used by the reports of this module. If withHeader is set,
// the first row added is rendered as a header.
func NewTable(withHeader bool) *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if withHeader && row == 1 {
				s = headerRowStyle
				return
			}
			if row%2 == 0 {
				s = oddRowStyle
			} else {
				s = evenRowStyle
			}
			if col == 0 {
				s = s.Align(lipgloss.Right)
			} else {
				s = s.Align(lipgloss.Left)
			}
			return
		})
}

// Render the finished phases as a table with their durations and share of the total.
func (t *Timer) Render() string {
	events := t.Events()
	total := t.Total()
	table := NewTable(true)
	table.Row("Phase", "Duration", "Share")
	for _, e := range events {
		share := 0.0
		if total > 0 {
			share = 100 * float64(e.Duration) / float64(total)
		}
		table.Row(e.Name, FormatDuration(e.Duration), fmt.Sprintf("%.1f%%", share))
	}
	table.Row("Total", FormatDuration(total), "100.0%")
	return table.Render()
}

var reDuration = regexp.MustCompile(`^(\d+\.?\d*)([µa-z]+)$`)

// FormatDuration pretty prints duration without a long list of decimal points.
// Durations with more than one unit (e.g. "1m30.5s") are returned as formatted by time.Duration.
func FormatDuration(d time.Duration) string {
	s := d.String()
	matches := reDuration.FindStringSubmatch(s)
	if len(matches) != 3 {
		return s
	}
	num, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return s
	}
	return fmt.Sprintf("%.2f%s", num, matches[2])
}
