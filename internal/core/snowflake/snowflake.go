// Package snowflake converts between Discord snowflake ids and timestamps
//
// A snowflake is a 64 bit id whose high 42 bits hold milliseconds since the
// platform epoch. The low 22 bits (worker, process, sequence) are not
// recoverable from a timestamp, so Encode yields the smallest id for that
// millisecond and Decode(Encode(t)) round trips the timestamp only.
package snowflake

import (
	"regexp"
	"strconv"
	"time"

	perr "discordsearch/internal/platform/errors"
)

// Epoch is the platform epoch, 2015-01-01T00:00:00Z, in unix milliseconds
const Epoch int64 = 1420070400000

// timestampShift is the number of low bits below the timestamp
const timestampShift = 22

var pattern = regexp.MustCompile(`^\d{17,19}$`)

// IsValid reports whether s looks like a snowflake (17 to 19 ascii digits)
// This is a syntax check for input validation only
func IsValid(s string) bool { return pattern.MatchString(s) }

// Decode returns the creation time encoded in s, in local time
func Decode(s string) (time.Time, error) { return DecodeWithEpoch(s, Epoch) }

// DecodeWithEpoch is Decode for platforms that use a different epoch
func DecodeWithEpoch(s string, epochMS int64) (time.Time, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return time.Time{}, perr.WithField(
			perr.Wrapf(err, perr.ErrorCodeValidation, "invalid snowflake %q", s),
			"snowflake",
		)
	}
	ms := int64(v>>timestampShift) + epochMS
	return time.UnixMilli(ms).Local(), nil
}

// Encode returns the smallest snowflake created at t
// Times before the epoch clamp to "0"
func Encode(t time.Time) string {
	ms := t.UnixMilli() - Epoch
	if ms < 0 {
		return "0"
	}
	return strconv.FormatUint(uint64(ms)<<timestampShift, 10)
}
