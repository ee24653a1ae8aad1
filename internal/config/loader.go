package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/karnameh/internal/jalali"
	"github.com/example/karnameh/internal/recurrence"
)

// Config captures environment driven configuration values for the karnameh service.
type Config struct {
	HTTPPort         int
	DatabasePath     string
	Location         *time.Location
	Locale           jalali.Locale
	BoundPolicy      recurrence.BoundPolicy
	SnapshotInterval time.Duration
}

// Load parses configuration values from the current process environment.
//
// Every field has a default; values that are present but unparsable are
// collected and reported together.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:         8080,
		DatabasePath:     "karnameh.db",
		Location:         time.UTC,
		Locale:           jalali.LocalePersian,
		BoundPolicy:      recurrence.FirstBoundWins,
		SnapshotInterval: time.Hour,
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("KARNAMEH_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "KARNAMEH_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if path := strings.TrimSpace(os.Getenv("KARNAMEH_DB_PATH")); path != "" {
		cfg.DatabasePath = path
	}

	if zone := strings.TrimSpace(os.Getenv("KARNAMEH_TIMEZONE")); zone != "" {
		location, err := time.LoadLocation(zone)
		if err != nil {
			invalid = append(invalid, "KARNAMEH_TIMEZONE")
		} else {
			cfg.Location = location
		}
	}

	switch locale := strings.TrimSpace(os.Getenv("KARNAMEH_LOCALE")); locale {
	case "", "persian":
	case "latin":
		cfg.Locale = jalali.LocaleLatin
	default:
		invalid = append(invalid, "KARNAMEH_LOCALE")
	}

	switch policy := strings.TrimSpace(os.Getenv("KARNAMEH_RECURRENCE_BOUNDS")); policy {
	case "", "first_bound_wins":
	case "exclusive":
		cfg.BoundPolicy = recurrence.ExclusiveBounds
	default:
		invalid = append(invalid, "KARNAMEH_RECURRENCE_BOUNDS")
	}

	if intervalValue := strings.TrimSpace(os.Getenv("KARNAMEH_SNAPSHOT_INTERVAL")); intervalValue != "" {
		interval, err := time.ParseDuration(intervalValue)
		if err != nil || interval <= 0 {
			invalid = append(invalid, "KARNAMEH_SNAPSHOT_INTERVAL")
		} else {
			cfg.SnapshotInterval = interval
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
