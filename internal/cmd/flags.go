package cmd

import (
	"fmt"
	"time"

	"github.com/caarlos0/duration"
)

// durationFlag accepts time.ParseDuration units plus days and weeks.
type durationFlag struct {
	d *time.Duration
}

func newDurationFlag(val time.Duration, p *time.Duration) *durationFlag {
	*p = val
	return &durationFlag{d: p}
}

func (f *durationFlag) Set(s string) error {
	d, err := duration.Parse(s)
	if err != nil {
		return fmt.Errorf("parse duration: %w", err)
	}
	*f.d = d
	return nil
}

func (f *durationFlag) String() string {
	return f.d.String()
}

func (f *durationFlag) Type() string {
	return "duration"
}
