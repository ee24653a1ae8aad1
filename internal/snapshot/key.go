package snapshot

import (
	"errors"
	"fmt"

	"github.com/example/karnameh/internal/period"
)

// ReportType identifies whose work a snapshot covers.
type ReportType string

const (
	// ReportIndividual scopes a snapshot to a single user.
	ReportIndividual ReportType = "individual"
	// ReportTeam scopes a snapshot to a domain's whole team.
	ReportTeam ReportType = "team"
)

// ErrInvalidKey is wrapped by all key validation failures.
var ErrInvalidKey = errors.New("snapshot: invalid key")

// Key is the identity tuple of a saved report snapshot. At most one
// snapshot ever exists per key; the persistence layer enforces this with a
// uniqueness constraint over all seven fields.
//
// Month and Week are zero when the period type does not use them. Exactly
// one of UserID and DomainID is set, matching the report type.
type Key struct {
	ReportType ReportType
	PeriodType period.Type
	Year       int
	Month      int
	Week       int
	UserID     string
	DomainID   string
}

// Validate checks the structural rules above. Daily periods never produce
// snapshots; reports for a single day are always served live.
func (k Key) Validate() error {
	switch k.ReportType {
	case ReportIndividual:
		if k.UserID == "" {
			return fmt.Errorf("%w: individual report requires a user id", ErrInvalidKey)
		}
		if k.DomainID != "" {
			return fmt.Errorf("%w: individual report must not carry a domain id", ErrInvalidKey)
		}
	case ReportTeam:
		if k.DomainID == "" {
			return fmt.Errorf("%w: team report requires a domain id", ErrInvalidKey)
		}
		if k.UserID != "" {
			return fmt.Errorf("%w: team report must not carry a user id", ErrInvalidKey)
		}
	default:
		return fmt.Errorf("%w: unknown report type %q", ErrInvalidKey, string(k.ReportType))
	}

	switch k.PeriodType {
	case period.TypeWeekly:
		if k.Week < 1 {
			return fmt.Errorf("%w: weekly snapshot requires a week number", ErrInvalidKey)
		}
	case period.TypeMonthly:
		if k.Month < 1 || k.Month > 12 {
			return fmt.Errorf("%w: monthly snapshot requires a month in 1..12", ErrInvalidKey)
		}
	case period.TypeYearly:
	default:
		return fmt.Errorf("%w: unsupported snapshot period type %q", ErrInvalidKey, string(k.PeriodType))
	}

	return nil
}

// Descriptor returns the period descriptor the key identifies.
func (k Key) Descriptor() period.Descriptor {
	return period.Descriptor{
		Type:  k.PeriodType,
		Year:  k.Year,
		Month: k.Month,
		Week:  k.Week,
	}
}

// String renders the key for logs.
func (k Key) String() string {
	scope := k.UserID
	if k.ReportType == ReportTeam {
		scope = k.DomainID
	}
	return fmt.Sprintf("%s/%s %d-%02d-w%02d %s", k.ReportType, k.PeriodType, k.Year, k.Month, k.Week, scope)
}
