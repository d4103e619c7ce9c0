package tallies

import (
	"sort"

	"github.com/google/uuid"

	"github.com/designday-guide/backend/internal/models"
)

// BuildVoteTally assembles an event's tally. An event without votes yields
// zero and an empty, non-nil list.
func BuildVoteTally(eventID uuid.UUID, counts []models.TeamVoteCount) models.VoteTally {
	tally := models.VoteTally{EventID: eventID, TeamVotes: []models.TeamVoteCount{}}
	for _, c := range counts {
		tally.TotalVotes += c.VoteCount
		tally.TeamVotes = append(tally.TeamVotes, c)
	}
	sort.SliceStable(tally.TeamVotes, func(i, j int) bool {
		a, b := tally.TeamVotes[i], tally.TeamVotes[j]
		if a.VoteCount != b.VoteCount {
			return a.VoteCount > b.VoteCount
		}
		return a.Team < b.Team
	})
	return tally
}

// BuildScanCounts assembles the scan leaderboard, highest count first.
func BuildScanCounts(counts []models.EventScanCount) models.ScanCounts {
	out := models.ScanCounts{EventScans: []models.EventScanCount{}}
	for _, c := range counts {
		out.TotalScans += c.ScanCount
		out.EventScans = append(out.EventScans, c)
	}
	sort.SliceStable(out.EventScans, func(i, j int) bool {
		return out.EventScans[i].ScanCount > out.EventScans[j].ScanCount
	})
	return out
}
