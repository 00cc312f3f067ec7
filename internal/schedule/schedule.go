package schedule

import "fmt"

// Type discriminates the schedule variants. Daily and weekly schedules carry
// times; weekly additionally carries weekdays; as-needed carries neither.
type Type string

const (
	TypeDaily    Type = "daily"
	TypeWeekly   Type = "weekly"
	TypeAsNeeded Type = "as-needed"
)

// TimeOfDay is an hour:minute wall-clock slot.
type TimeOfDay struct {
	Hour   int `bson:"hour" json:"hour"`
	Minute int `bson:"minute" json:"minute"`
}

// Schedule describes when a medication should be taken. Embedded in the
// medication document.
type Schedule struct {
	Type  Type        `bson:"type" json:"type"`
	Times []TimeOfDay `bson:"times,omitempty" json:"times,omitempty"`
	Days  []int       `bson:"days,omitempty" json:"days,omitempty"` // 0 = Sunday .. 6 = Saturday
}

// ValidationError reports a malformed schedule with field-level detail.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid schedule: %s %s", e.Field, e.Reason)
}

func (t TimeOfDay) validate(field string) error {
	if t.Hour < 0 || t.Hour > 23 {
		return &ValidationError{Field: field + ".hour", Reason: "must be between 0 and 23"}
	}
	if t.Minute < 0 || t.Minute > 59 {
		return &ValidationError{Field: field + ".minute", Reason: "must be between 0 and 59"}
	}
	return nil
}

// Validate rejects invalid variant combinations before any expansion happens.
func (s Schedule) Validate() error {
	switch s.Type {
	case TypeDaily:
		if len(s.Days) > 0 {
			return &ValidationError{Field: "days", Reason: "not allowed for daily schedules"}
		}
		if len(s.Times) == 0 {
			return &ValidationError{Field: "times", Reason: "must not be empty for daily schedules"}
		}
	case TypeWeekly:
		if len(s.Times) == 0 {
			return &ValidationError{Field: "times", Reason: "must not be empty for weekly schedules"}
		}
		if len(s.Days) == 0 {
			return &ValidationError{Field: "days", Reason: "must not be empty for weekly schedules"}
		}
		for i, day := range s.Days {
			if day < 0 || day > 6 {
				return &ValidationError{Field: fmt.Sprintf("days[%d]", i), Reason: "must be between 0 and 6"}
			}
		}
	case TypeAsNeeded:
		if len(s.Times) > 0 || len(s.Days) > 0 {
			return &ValidationError{Field: "type", Reason: "as-needed schedules must not carry times or days"}
		}
	default:
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown schedule type %q", s.Type)}
	}
	for i, t := range s.Times {
		if err := t.validate(fmt.Sprintf("times[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}
