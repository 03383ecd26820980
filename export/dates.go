package export

import (
	"strings"
	"time"

	"admin-service/apperr"
)

const dateLayout = "2006-01-02"

// DateRange is a half-open interval [Start, End) built from the two query
// dates. End is the day after the requested end date so the whole end day is
// included.
type DateRange struct {
	Start    time.Time
	End      time.Time
	StartRaw string
	EndRaw   string
}

// ParseRange parses the start and end query values. Both accept YYYY-MM-DD
// (midnight UTC) or an RFC 3339 timestamp.
func ParseRange(startRaw, endRaw string) (DateRange, error) {
	startRaw = strings.TrimSpace(startRaw)
	endRaw = strings.TrimSpace(endRaw)
	if startRaw == "" || endRaw == "" {
		return DateRange{}, apperr.Validation("Start date and end date are required")
	}

	start, err := parseDate(startRaw)
	if err != nil {
		return DateRange{}, apperr.Validation("Invalid date format. Please use YYYY-MM-DD format.")
	}
	end, err := parseDate(endRaw)
	if err != nil {
		return DateRange{}, apperr.Validation("Invalid date format. Please use YYYY-MM-DD format.")
	}
	if start.After(end) {
		return DateRange{}, apperr.Validation("Start date must not be after end date")
	}

	return DateRange{
		Start:    start,
		End:      end.AddDate(0, 0, 1),
		StartRaw: startRaw,
		EndRaw:   endRaw,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}
