// Command perpgated runs the gateway's two scheduled HTTP entry points
// (/snapshot, /alert) plus health and debug-websocket routes behind a
// single process. A scheduler (cron, systemd timer, cloud scheduler) is
// expected to poll /snapshot and /alert; this binary does not loop itself.
package main

import (
	"log"

	"github.com/ai-agentic-browser/internal/config"
	"github.com/ai-agentic-browser/internal/wiring"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := wiring.RunServer(cfg); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
