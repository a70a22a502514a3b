package http

import (
	"strconv"
	"time"

	"reimburse/internal/middleware/ratelimit"
)

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func rateLimitConfig(perMinute int) ratelimit.Config {
	return ratelimit.Config{RequestsPerMinute: perMinute, CleanupInterval: time.Hour}
}
