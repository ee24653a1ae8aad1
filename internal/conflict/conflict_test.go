package conflict

import (
	"testing"
	"time"
)

func booking(id string, participants []string, start string, minutes int) Booking {
	t, err := time.Parse(time.RFC3339, start)
	if err != nil {
		panic(err)
	}
	return Booking{
		MeetingID:      id,
		ParticipantIDs: participants,
		Start:          t,
		End:            t.Add(time.Duration(minutes) * time.Minute),
	}
}

func TestDetect(t *testing.T) {
	t.Parallel()

	existing := []Booking{
		booking("m1", []string{"u1", "u2"}, "2024-05-08T14:00:00Z", 60),
		booking("m2", []string{"u3"}, "2024-05-08T14:30:00Z", 60),
		booking("m3", []string{"u1"}, "2024-05-08T16:00:00Z", 30),
	}

	tests := []struct {
		name      string
		candidate Booking
		want      []Conflict
	}{
		{
			name:      "overlap with shared participant",
			candidate: booking("new", []string{"u1"}, "2024-05-08T14:30:00Z", 30),
			want:      []Conflict{{WithMeetingID: "m1", ParticipantID: "u1"}},
		},
		{
			name:      "overlap without shared participants",
			candidate: booking("new", []string{"u4"}, "2024-05-08T14:30:00Z", 30),
			want:      nil,
		},
		{
			name:      "back to back meetings do not conflict",
			candidate: booking("new", []string{"u1"}, "2024-05-08T15:00:00Z", 60),
			want:      nil,
		},
		{
			name:      "conflicts reported per overlapping meeting",
			candidate: booking("new", []string{"u1", "u3"}, "2024-05-08T14:45:00Z", 120),
			want: []Conflict{
				{WithMeetingID: "m1", ParticipantID: "u1"},
				{WithMeetingID: "m2", ParticipantID: "u3"},
				{WithMeetingID: "m3", ParticipantID: "u1"},
			},
		},
		{
			name:      "candidate never conflicts with itself",
			candidate: booking("m1", []string{"u1"}, "2024-05-08T14:00:00Z", 60),
			want:      nil,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Detect(existing, tc.candidate)
			if len(got) != len(tc.want) {
				t.Fatalf("got %d conflicts %v, want %d", len(got), got, len(tc.want))
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("conflict[%d] = %+v, want %+v", i, got[i], tc.want[i])
				}
			}
		})
	}
}
