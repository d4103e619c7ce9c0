package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType is the kind of a Design Day event.
type EventType string

const (
	EventActivity EventType = "Activity"
	EventShow     EventType = "Show"
	EventExhibit  EventType = "Exhibit"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventActivity, EventShow, EventExhibit:
		return true
	}
	return false
}

// Event is a scheduled activity, show or exhibit.
// Shows carry a Duration (minutes); all other types carry an EndTime.
type Event struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Location    string    `json:"location"`
	Image       string    `json:"image"`
	Description string    `json:"description"`
	StartTime   string    `json:"startTime"`
	EndTime     *string   `json:"endTime,omitempty"`
	Duration    *int      `json:"duration,omitempty"`
	EventType   EventType `json:"eventType"`
	EventURL    string    `json:"eventURL"`
	Teams       []Team    `json:"teams"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// EventURL returns the deep link the mobile app opens for an event.
func EventURL(scheme string, id uuid.UUID) string {
	return fmt.Sprintf("%s://event/%s", scheme, id)
}

// EventRef is the short form of an event embedded in other records.
type EventRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// EventScanStatus is an event annotated with whether a given guest scanned it.
type EventScanStatus struct {
	Event
	Scanned bool `json:"scanned"`
}
