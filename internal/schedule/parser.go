// Package schedule converts human-friendly duration and cron strings into the
// forms accepted by the queue provider.
package schedule

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var durationPattern = regexp.MustCompile(`^(\d+)([smhd])$`)

var unitSeconds = map[string]int64{
	"s": 1,
	"m": 60,
	"h": 60 * 60,
	"d": 24 * 60 * 60,
}

// The provider accepts standard five-field expressions with an optional
// CRON_TZ= prefix, but no @descriptors.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// maxSeconds keeps every parsed duration representable as a time.Duration.
const maxSeconds = math.MaxInt64 / int64(time.Second)

// ParseDuration converts strings such as "60s", "5m", "2h" or "1d" to seconds.
func ParseDuration(text string) (int64, error) {
	m := durationPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, &InvalidDurationStringValidationError{
			Value:  text,
			Reason: "expected a whole number followed by one of s, m, h, d",
		}
	}

	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, &InvalidDurationStringValidationError{Value: text, Reason: "number out of range"}
	}
	unit := unitSeconds[m[2]]
	if n > maxSeconds/unit {
		return 0, &InvalidDurationStringValidationError{Value: text, Reason: "number out of range"}
	}
	return n * unit, nil
}

// ParseCron validates a cron expression and returns it trimmed.
func ParseCron(text string) (string, error) {
	expr := strings.Join(strings.Fields(text), " ")
	if expr == "" {
		return "", &InvalidCronStringValidationError{Value: text}
	}
	fields := strings.Fields(expr)
	if (strings.HasPrefix(fields[0], "CRON_TZ=") || strings.HasPrefix(fields[0], "TZ=")) && len(fields) < 2 {
		return "", &InvalidCronStringValidationError{Value: text, Err: errors.New("time zone prefix without a schedule")}
	}
	if err := parseCron(expr); err != nil {
		return "", &InvalidCronStringValidationError{Value: text, Err: err}
	}
	return expr, nil
}

// parseCron turns a panic inside the cron library into an error.
func parseCron(expr string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed cron expression: %v", r)
		}
	}()
	_, err = cronParser.Parse(expr)
	return err
}

// FormatDelay renders d the way the provider expects a delay header.
// Sub-second remainders round up so a non-zero delay never becomes "0s".
func FormatDelay(d time.Duration) string {
	secs := int64(d / time.Second)
	if d%time.Second > 0 {
		secs++
	}
	return strconv.FormatInt(secs, 10) + "s"
}
