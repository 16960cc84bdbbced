package core

import (
	"time"
)

// Timestamp is a wall-clock instant stored on run manifests
type Timestamp time.Time

func Now() Timestamp {
	return Timestamp(time.Now())
}

func (t Timestamp) Time() time.Time {
	return time.Time(t)
}

// IsZero reports an unset timestamp, e.g. a run that has not finished
func (t Timestamp) IsZero() bool {
	return time.Time(t).IsZero()
}

func (t Timestamp) Sub(u Timestamp) time.Duration {
	return time.Time(t).Sub(time.Time(u))
}
