package realtime

// Event names carried on the shared channel. Payloads are the full affected
// entity, or identifying keys for deletes.
const (
	EventEventCreated    = "eventCreated"
	EventEventUpdated    = "eventUpdated"
	EventEventDeleted    = "eventDeleted"
	EventTeamCreated     = "teamCreated"
	EventTeamUpdated     = "teamUpdated"
	EventTeamDeleted     = "teamDeleted"
	EventUserCreated     = "userCreated"
	EventUserRoleChanged = "userRoleChanged"
	EventGuestVoted      = "guestVoted"
	EventGuestScanned    = "guestScanned"
)
