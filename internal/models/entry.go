package models

import "time"

// Entry is a single cache slot. The store owns it exclusively.
type Entry struct {
	Key       string
	Data      any
	Timestamp time.Time
	Seq       uint64
}

// NewEntry creates a new Entry stamped at now. seq orders entries written within the same clock tick.
func NewEntry(key string, data any, now time.Time, seq uint64) *Entry {
	return &Entry{
		Key:       key,
		Data:      data,
		Timestamp: now,
		Seq:       seq,
	}
}

// IsExpired reports whether the entry is older than maxAge at now.
func (e *Entry) IsExpired(now time.Time, maxAge time.Duration) bool {
	return now.Sub(e.Timestamp) >= maxAge
}

// OlderThan reports whether e was written before other.
func (e *Entry) OlderThan(other *Entry) bool {
	if e.Timestamp.Equal(other.Timestamp) {
		return e.Seq < other.Seq
	}
	return e.Timestamp.Before(other.Timestamp)
}
