package timeutil

import (
	"time"
)

// TimeUTC is Unix time in seconds, always UTC.
type TimeUTC struct {
	T int64 `json:"t"`
}

func NowUTC() TimeUTC {
	return TimeUTC{T: time.Now().UTC().Unix()}
}

func FromTime(t time.Time) TimeUTC {
	return TimeUTC{T: t.UTC().Unix()}
}

func (t TimeUTC) After(other TimeUTC) bool { return t.T > other.T }

func (t TimeUTC) AddSeconds(sec int64) TimeUTC {
	return TimeUTC{T: t.T + sec}
}

func (t TimeUTC) Time() time.Time {
	return time.Unix(t.T, 0).UTC()
}
