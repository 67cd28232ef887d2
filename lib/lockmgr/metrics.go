package lockmgr

import (
	"fmt"
	"strings"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// --------------------------------------------------------------------------
// Metrics
// --------------------------------------------------------------------------

const (
	opAcquire = "acquire"
	opRenew   = "renew"
	opRelease = "release"
)

// resultLabel returns the value of the result label for err
func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return strings.ToLower(KindOf(err).String())
}

// observe counts one finished operation, e.g. redislock_acquire_total{result="contended"}
func observe(op string, err error) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`redislock_%s_total{result=%q}`, op, resultLabel(err))).Inc()
}

// observeAcquireWait records how long a successful Acquire took
func observeAcquireWait(d time.Duration) {
	metrics.GetOrCreateHistogram(`redislock_acquire_wait_seconds`).Update(d.Seconds())
}
