package events

import (
	"errors"
	"strconv"
	"strings"

	"github.com/designday-guide/backend/internal/models"
)

// Form is the multipart body for creating and editing an event.
// On edit every field is optional; empty fields keep their stored value.
type Form struct {
	Name        string `form:"name"`
	Location    string `form:"location"`
	Description string `form:"description"`
	StartTime   string `form:"startTime"`
	EndTime     string `form:"endTime"`
	Duration    string `form:"duration"`
	EventType   string `form:"eventType"`
}

// Apply copies the non-empty fields of f onto e.
func (f Form) Apply(e *models.Event) error {
	if v := strings.TrimSpace(f.Name); v != "" {
		e.Name = v
	}
	if v := strings.TrimSpace(f.Location); v != "" {
		e.Location = v
	}
	if f.Description != "" {
		e.Description = f.Description
	}
	if v := strings.TrimSpace(f.StartTime); v != "" {
		e.StartTime = v
	}
	if v := strings.TrimSpace(f.EndTime); v != "" {
		e.EndTime = &v
	}
	if v := strings.TrimSpace(f.Duration); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("duration must be a whole number of minutes")
		}
		e.Duration = &d
	}
	if v := strings.TrimSpace(f.EventType); v != "" {
		e.EventType = models.EventType(v)
	}
	return nil
}

// Validate checks required fields and the endTime/duration rule, then drops
// whichever of the two does not apply to the event type.
func Validate(e *models.Event) error {
	switch {
	case e.Name == "":
		return errors.New("name is required")
	case e.Location == "":
		return errors.New("location is required")
	case e.Description == "":
		return errors.New("description is required")
	case e.StartTime == "":
		return errors.New("start time is required")
	case !e.EventType.Valid():
		return errors.New("event type must be one of Activity, Show, Exhibit")
	}
	if e.EventType == models.EventShow {
		if e.Duration == nil || *e.Duration <= 0 {
			return errors.New("duration is required for Show events")
		}
		e.EndTime = nil
		return nil
	}
	if e.EndTime == nil || *e.EndTime == "" {
		return errors.New("end time is required")
	}
	e.Duration = nil
	return nil
}
