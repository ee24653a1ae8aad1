// Package conflict detects participant double-bookings between meetings.
// Detection is advisory: overlapping meetings are allowed, callers surface
// the result as warnings.
package conflict

import "time"

// Booking is one concrete meeting occurrence with its attendees.
type Booking struct {
	MeetingID      string
	ParticipantIDs []string
	Start          time.Time
	End            time.Time
}

// Conflict reports that a participant is booked in two overlapping meetings.
type Conflict struct {
	WithMeetingID string
	ParticipantID string
}

// Detect returns a conflict per participant the candidate shares with an
// overlapping existing booking. The candidate's own meeting id is skipped so
// updates do not conflict with themselves.
func Detect(existing []Booking, candidate Booking) []Conflict {
	if len(candidate.ParticipantIDs) == 0 || !candidate.Start.Before(candidate.End) {
		return nil
	}

	attending := make(map[string]bool, len(candidate.ParticipantIDs))
	for _, id := range candidate.ParticipantIDs {
		attending[id] = true
	}

	var conflicts []Conflict
	for _, other := range existing {
		if other.MeetingID == candidate.MeetingID {
			continue
		}
		if !overlaps(candidate.Start, candidate.End, other.Start, other.End) {
			continue
		}
		for _, id := range other.ParticipantIDs {
			if attending[id] {
				conflicts = append(conflicts, Conflict{WithMeetingID: other.MeetingID, ParticipantID: id})
			}
		}
	}
	return conflicts
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
