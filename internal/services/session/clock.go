package session

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

type Status string

const (
	Premarket  Status = "premarket"
	Regular    Status = "regular"
	Afterhours Status = "afterhours"
	Closed     Status = "closed"
	Weekend    Status = "weekend"
)

const closedInterval = time.Hour

// clock minutes since midnight, exchange time
const (
	premarketStart  = 4 * 60
	regularStart    = 9*60 + 30
	regularEnd      = 16 * 60
	afterhoursEnd   = 20 * 60
	minutesPerDay   = 24 * 60
	maxLookaheadDay = 8
)

type Option func(*Clock)

func WithPremarket(enabled bool) Option  { return func(c *Clock) { c.premarket = enabled } }
func WithAfterhours(enabled bool) Option { return func(c *Clock) { c.afterhours = enabled } }

// Clock classifies instants into US equity trading sessions.
// Exchange holidays are not modelled.
type Clock struct {
	loc        *time.Location
	premarket  bool
	afterhours bool
}

func NewClock(timezone string, opts ...Option) (*Clock, error) {
	if timezone == "" {
		timezone = "America/New_York"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	c := &Clock{loc: loc, premarket: true}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Clock) Location() *time.Location { return c.loc }

// Status reports the session containing now regardless of which sessions are enabled.
func (c *Clock) Status(now time.Time) Status {
	t := now.In(c.loc)
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return Weekend
	}
	switch m := t.Hour()*60 + t.Minute(); {
	case m >= premarketStart && m < regularStart:
		return Premarket
	case m >= regularStart && m < regularEnd:
		return Regular
	case m >= regularEnd && m < afterhoursEnd:
		return Afterhours
	default:
		return Closed
	}
}

// ShouldScan reports whether now falls in an enabled session.
func (c *Clock) ShouldScan(now time.Time) bool {
	switch c.Status(now) {
	case Premarket:
		return c.premarket
	case Regular:
		return true
	case Afterhours:
		return c.afterhours
	default:
		return false
	}
}

// NextOpen returns the start of the next enabled session, or now if one is active.
func (c *Clock) NextOpen(now time.Time) time.Time {
	if c.ShouldScan(now) {
		return now
	}
	t := now.In(c.loc)
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc)
	starts := []int{premarketStart, regularStart, regularEnd}

	for d := 0; d < maxLookaheadDay; d++ {
		base := day.AddDate(0, 0, d)
		for _, m := range starts {
			cand := time.Date(base.Year(), base.Month(), base.Day(), m/60, m%60, 0, 0, c.loc)
			if cand.After(t) && c.ShouldScan(cand) {
				return cand
			}
		}
	}
	return t.Add(closedInterval)
}

// Interval scales the base scan interval by session. Outside enabled
// sessions it is one hour.
func (c *Clock) Interval(base time.Duration, now time.Time) time.Duration {
	if !c.ShouldScan(now) {
		return closedInterval
	}
	switch c.Status(now) {
	case Regular:
		return base * 2
	case Afterhours:
		return base * 3
	default:
		return base
	}
}

// Info is a snapshot of the session state for display.
type Info struct {
	Status            Status    `json:"status"`
	Active            bool      `json:"active"`
	Now               time.Time `json:"now"`
	NextOpen          time.Time `json:"next_open,omitempty"`
	WaitMinutes       int       `json:"wait_minutes,omitempty"`
	PremarketEnabled  bool      `json:"premarket_enabled"`
	AfterhoursEnabled bool      `json:"afterhours_enabled"`
}

func (c *Clock) Info(now time.Time) Info {
	t := now.In(c.loc)
	info := Info{
		Status:            c.Status(t),
		Active:            c.ShouldScan(t),
		Now:               t,
		PremarketEnabled:  c.premarket,
		AfterhoursEnabled: c.afterhours,
	}
	if !info.Active {
		info.NextOpen = c.NextOpen(t)
		info.WaitMinutes = int(info.NextOpen.Sub(t) / time.Minute)
	}
	return info
}
