package events

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the wire format of every event timestamp: ISO-8601 with
// microsecond precision and a numeric UTC offset, "+00:00" rather than "Z".
const TimestampLayout = "2006-01-02T15:04:05.000000-07:00"

// Timestamp keeps its UTC offset through a JSON round trip
type Timestamp struct {
	time.Time
}

// NewTimestamp truncates t to the precision the wire format carries
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.Truncate(time.Microsecond)}
}

func (ts Timestamp) String() string {
	return ts.Time.Format(TimestampLayout)
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.Time.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + ts.Time.Format(TimestampLayout) + `"`), nil
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if raw == "null" {
		ts.Time = time.Time{}
		return nil
	}
	raw = strings.Trim(raw, `"`)

	parsed, err := time.Parse(TimestampLayout, raw)
	if err != nil {
		// Producers that drop the fractional part or write "Z" are still accepted
		parsed, err = time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return fmt.Errorf("invalid event timestamp %q: %w", raw, err)
		}
	}
	ts.Time = parsed
	return nil
}
