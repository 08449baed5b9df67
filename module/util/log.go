package util

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogProgressFunc records that another item has been processed.
type LogProgressFunc func()

// LogProgress returns a function counting processed items out of total. A line is logged
// when processing starts, and then every time another tenth of total is reached.
// The returned function can be called concurrently.
func LogProgress(log zerolog.Logger, msg string, total int) LogProgressFunc {
	start := time.Now()
	step := total / 10
	if step == 0 {
		step = 1
	}

	var mu sync.Mutex
	current := 0

	logProgress := func(current int) {
		percentage := float64(100)
		if total > 0 {
			percentage = float64(current) / float64(total) * 100
		}
		log.Info().Msgf("%s progress %d/%d (%.1f%%) elapsed: %s",
			msg, current, total, percentage, time.Since(start).Round(time.Millisecond))
	}

	logProgress(0)

	return func() {
		mu.Lock()
		defer mu.Unlock()

		current++
		if current%step == 0 || current == total {
			logProgress(current)
		}
	}
}
