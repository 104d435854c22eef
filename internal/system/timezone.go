// Package system shells out to host utilities for the few facts the
// daemon cannot report itself.
package system

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const timedatectlTimeout = 5 * time.Second

// Timezone returns the host timezone per timedatectl.
func Timezone(ctx context.Context) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, timedatectlTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "timedatectl", "show", "--property=Timezone", "--value").Output()
	if err != nil {
		return "", false
	}
	tz := strings.TrimSpace(string(out))
	return tz, tz != ""
}

// ListTimezones returns the host's known timezone names.
func ListTimezones(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, timedatectlTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "timedatectl", "list-timezones").Output()
	if err != nil {
		return nil, fmt.Errorf("list timezones: %w", err)
	}
	var zones []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			zones = append(zones, line)
		}
	}
	return zones, nil
}

// SetTimezone changes the host timezone. Needs the usual polkit or root
// privileges; the error is passed through for display.
func SetTimezone(ctx context.Context, zone string) error {
	zone = strings.TrimSpace(zone)
	if zone == "" {
		return fmt.Errorf("timezone is empty")
	}
	ctx, cancel := context.WithTimeout(ctx, timedatectlTimeout)
	defer cancel()

	if out, err := exec.CommandContext(ctx, "timedatectl", "set-timezone", zone).CombinedOutput(); err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return fmt.Errorf("set timezone: %w", err)
		}
		return fmt.Errorf("set timezone: %s", msg)
	}
	return nil
}
