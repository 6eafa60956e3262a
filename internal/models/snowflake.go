package models

import (
	"time"

	"go-guildevents/pkg/util"
)

// DiscordEpoch is the first millisecond of 2015 in unix milliseconds.
const DiscordEpoch = 1420070400000

// Snowflake is a platform-assigned 64-bit identifier. Ordering is plain
// unsigned integer ordering.
type Snowflake uint64

func ParseSnowflake(s string) (Snowflake, error) {
	n, err := util.StringToUint64(s)
	if err != nil {
		return 0, err
	}
	return Snowflake(n), nil
}

// ParseOptionalSnowflake maps "" to 0 instead of failing.
func ParseOptionalSnowflake(s string) (Snowflake, error) {
	if s == "" {
		return 0, nil
	}
	return ParseSnowflake(s)
}

func (s Snowflake) String() string {
	return util.Uint64ToString(uint64(s))
}

func (s Snowflake) IsZero() bool {
	return s == 0
}

func (s Snowflake) CreatedAt() time.Time {
	ms := int64(s>>22) + DiscordEpoch
	return time.UnixMilli(ms).UTC()
}
