// Package timeline flattens inventory records into a chronological event
// stream: one event per populated timestamp field per file.
package timeline

import (
	"sort"
	"time"

	"varanus/scanner"
)

// EventSpec maps a record timestamp field onto an event label.
type EventSpec struct {
	Field string
	Label string
}

// DefaultEvents covers the four filesystem timestamps in lifecycle order.
var DefaultEvents = []EventSpec{
	{Field: scanner.FieldBirthtime, Label: "Created"},
	{Field: scanner.FieldCtime, Label: "MetadataChanged"},
	{Field: scanner.FieldMtime, Label: "Modified"},
	{Field: scanner.FieldAtime, Label: "Accessed"},
}

// Event is one timestamped filesystem observation.
type Event struct {
	Epoch float64
	When  time.Time
	Event string
	Path  string
	Name  string
}

// Options control event expansion and timestamp rendering.
type Options struct {
	Events []EventSpec
	// UTC renders timestamps in UTC; OffsetMinutes, when non-zero, renders
	// in a fixed offset instead. Local time otherwise.
	UTC           bool
	OffsetMinutes int
}

// BuildEvents expands each record into one event per populated timestamp and
// returns the events sorted by (epoch, path, event label). Absent, NaN, zero
// and negative epochs carry no usable chronology and are dropped; the
// validator reports those separately.
func BuildEvents(records []*scanner.FileRecord, opts Options) []Event {
	specs := opts.Events
	if len(specs) == 0 {
		specs = DefaultEvents
	}
	loc := opts.location()

	var events []Event
	for _, record := range records {
		for _, spec := range specs {
			ts, _ := record.TimestampField(spec.Field)
			if ts == nil || !(*ts > 0) {
				continue
			}
			events = append(events, Event{
				Epoch: *ts,
				When:  epochToTime(*ts).In(loc),
				Event: spec.Label,
				Path:  record.Path,
				Name:  record.Name,
			})
		}
	}

	sort.Slice(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.Epoch != b.Epoch {
			return a.Epoch < b.Epoch
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Event < b.Event
	})
	return events
}

// Timestamp renders the event time in ISO 8601 with the resolved zone.
func (e Event) Timestamp() string {
	return e.When.Format("2006-01-02T15:04:05.000-07:00")
}

func (o Options) location() *time.Location {
	switch {
	case o.UTC:
		return time.UTC
	case o.OffsetMinutes != 0:
		return time.FixedZone("fixed", o.OffsetMinutes*60)
	default:
		return time.Local
	}
}

func epochToTime(epoch float64) time.Time {
	sec := int64(epoch)
	nsec := int64((epoch - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
