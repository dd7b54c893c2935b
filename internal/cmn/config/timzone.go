package config

import (
	"fmt"
	"time"
)

// setTimezone resolves cfg.TZ into cfg.Location. The location decides which
// weekday "today" is. An empty TZ uses the system local time zone.
func setTimezone(cfg *Core) error {
	if cfg.TZ != "" {
		loc, err := time.LoadLocation(cfg.TZ)
		if err != nil {
			return fmt.Errorf("failed to load timezone %q: %w", cfg.TZ, err)
		}
		cfg.Location = loc
		return nil
	}

	cfg.Location = time.Local
	cfg.TZ = time.Local.String()
	return nil
}
