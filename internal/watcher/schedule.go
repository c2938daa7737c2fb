package watcher

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultInterval is the pause between two polls when nothing else is
// configured.
const DefaultInterval = 600 * time.Second

var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseSchedule turns a poll schedule into a cron.Schedule.
//
// Supported forms:
//   - Go duration: "10m", "600s"
//   - Cron, explicit: "cron:*/10 * * * *"
//   - Cron, implicit: anything with whitespace or a leading '@' ("@every 5m", "0 * * * *")
func ParseSchedule(raw string) (cron.Schedule, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, fmt.Errorf("schedule required")
	}

	if strings.HasPrefix(strings.ToLower(s), "cron:") {
		expr := strings.TrimSpace(s[len("cron:"):])
		if expr == "" {
			return nil, fmt.Errorf("cron schedule required after 'cron:'")
		}
		return parseCron(expr)
	}
	if strings.ContainsAny(s, " \t") || strings.HasPrefix(s, "@") {
		return parseCron(s)
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q (use a duration like '10m' or cron like 'cron:*/10 * * * *')", raw)
	}
	if d < time.Second {
		return nil, fmt.Errorf("interval must be at least 1s, got %s", d)
	}
	return cron.Every(d), nil
}

func parseCron(expr string) (cron.Schedule, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron %q: %w", expr, err)
	}
	return sched, nil
}
