package models

import (
	"time"

	"github.com/google/uuid"
)

// Team is a student team presenting under an Activity event.
type Team struct {
	ID          uuid.UUID `json:"id"`
	EventID     uuid.UUID `json:"eventId"`
	Name        string    `json:"name"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	Students    []string  `json:"students"`
	StartTime   string    `json:"startTime"`
	EndTime     string    `json:"endTime"`
	Event       *EventRef `json:"event,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
