/*
DESCRIPTION
  watchdog.go tracks in-flight worker/request handlers and exposes their
  health to an operator-visible endpoint, and lets the process catch
  SIGINT/SIGTERM to run a shutdown callback before exit. Grounded on
  cmd/vidforward's watchdogNotifier, with the systemd SdNotify calls
  replaced by a Fiber health handler (this node has no systemd unit to
  notify, and spec.md carries no systemd dependency).

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package watchdog tracks handler liveness and process termination
// signals for clipfleet's long-running workers.
package watchdog

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ausocean/utils/logging"
)

// unhealthyHandleDuration is how long a handler may run before it is
// reported unhealthy.
const unhealthyHandleDuration = 30 * time.Second

type handlerInfo struct {
	name  string
	start time.Time
}

// Notifier tracks currently in-flight handlers by name and start time,
// and runs a termination callback on SIGINT/SIGTERM.
type Notifier struct {
	log  logging.Logger
	mu   sync.Mutex
	curr map[int]handlerInfo
	next int
}

// New returns a Notifier logging through log.
func New(log logging.Logger) *Notifier {
	return &Notifier{log: log, curr: make(map[int]handlerInfo)}
}

// HandlerInvoked records that a handler named name has started, and
// returns a function the caller must invoke (typically via defer) when
// the handler completes.
func (n *Notifier) HandlerInvoked(name string) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.next
	n.next++
	n.curr[id] = handlerInfo{name: name, start: time.Now()}

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.curr, id)
	}
}

// Unhealthy reports the names of handlers that have been running
// longer than unhealthyHandleDuration.
func (n *Notifier) Unhealthy() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var stuck []string
	for _, info := range n.curr {
		if time.Since(info.start) > unhealthyHandleDuration {
			stuck = append(stuck, info.name)
		}
	}
	return stuck
}

// Healthz returns a Fiber handler reporting 200 with the count of
// in-flight handlers when healthy, or 503 with the stuck handler names
// otherwise.
func (n *Notifier) Healthz() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if stuck := n.Unhealthy(); len(stuck) > 0 {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"unhealthy": stuck})
		}
		n.mu.Lock()
		inFlight := len(n.curr)
		n.mu.Unlock()
		return c.JSON(fiber.Map{"status": "ok", "in_flight": inFlight})
	}
}

// WatchSignals blocks the calling goroutine's caller no further than
// spawning one background goroutine: it waits for SIGINT or SIGTERM and
// then calls onTerm. Call it once at startup; it returns immediately.
func (n *Notifier) WatchSignals(onTerm func()) {
	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigs
		n.log.Warning("watchdog: received termination signal", "signal", sig.String())
		onTerm()
	}()
}
