package models

import (
	"time"

	"github.com/google/uuid"
)

// Vote is a guest's single vote for a team within an event.
type Vote struct {
	ID        int64     `json:"id"`
	GuestID   string    `json:"guestId"`
	EventID   uuid.UUID `json:"eventId"`
	TeamID    uuid.UUID `json:"teamId"`
	CreatedAt time.Time `json:"createdAt"`
}

// GuestVote is a vote with its event and team expanded.
type GuestVote struct {
	Vote
	Event EventRef `json:"event"`
	Team  TeamRef  `json:"team"`
}

// TeamRef is the short form of a team embedded in other records.
type TeamRef struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Image string    `json:"image"`
}

// Scan records that a guest scanned an event's QR code.
type Scan struct {
	ID        int64     `json:"id"`
	GuestID   string    `json:"guestId"`
	EventID   uuid.UUID `json:"eventId"`
	CreatedAt time.Time `json:"createdAt"`
}

// TeamVoteCount is one row of an event's vote tally.
type TeamVoteCount struct {
	TeamID    uuid.UUID `json:"teamId"`
	Team      string    `json:"team"`
	VoteCount int       `json:"voteCount"`
}

// VoteTally is the vote breakdown for one event.
type VoteTally struct {
	EventID    uuid.UUID       `json:"eventId"`
	TotalVotes int             `json:"totalVotes"`
	TeamVotes  []TeamVoteCount `json:"teamVotes"`
}

// EventScanCount is one row of the scan leaderboard.
type EventScanCount struct {
	EventID   uuid.UUID `json:"eventId"`
	Event     string    `json:"event"`
	ScanCount int       `json:"scanCount"`
}

// ScanCounts is the scan breakdown across events.
type ScanCounts struct {
	TotalScans int              `json:"totalScans"`
	EventScans []EventScanCount `json:"eventScans"`
}
