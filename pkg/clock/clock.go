// Package clock abstracts time.Now so services that stamp admissions and
// document numbers can be tested across day boundaries.
package clock

import "time"

// Clock yields the current time. Production code uses Real; tests inject a
// fixed or stepping implementation.
type Clock interface {
	Now() time.Time
}

// Real reads the system clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// New returns the production clock.
func New() Clock { return Real{} }

// Fixed always returns the same instant. Advance moves it forward.
type Fixed struct {
	t time.Time
}

// NewFixed returns a clock frozen at t.
func NewFixed(t time.Time) *Fixed { return &Fixed{t: t} }

func (f *Fixed) Now() time.Time { return f.t }

// Set repositions the clock.
func (f *Fixed) Set(t time.Time) { f.t = t }

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) { f.t = f.t.Add(d) }
