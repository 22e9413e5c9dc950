package analytics

import (
	"time"

	"github.com/safe-chain/guard/internal/eventlog"
)

// Command usage events are recorded in the local event log only. No data
// leaves the machine.
const (
	eventRun = "command_run"

	eventCommandNpm    = "command_npm"
	eventCommandPnpm   = "command_pnpm"
	eventCommandYarn   = "command_yarn"
	eventCommandBun    = "command_bun"
	eventCommandNpx    = "command_npx"
	eventCommandPnpx   = "command_pnpx"
	eventCommandPip    = "command_pip"
	eventCommandPip3   = "command_pip3"
	eventCommandUv     = "command_uv"
	eventCommandPoetry = "command_poetry"

	eventCommandSetup  = "command_setup"
	eventCommandRemove = "command_remove"
)

// TrackEvent records a command usage event in the local event log. Failures
// are ignored: usage accounting must never interfere with the wrapped
// command.
func TrackEvent(name string) {
	if !eventlog.IsInitialized() {
		return
	}

	_ = eventlog.LogEvent(eventlog.Event{
		Timestamp: time.Now(),
		EventType: eventlog.EventType(name),
	})
}

func TrackCommandRun() {
	TrackEvent(eventRun)
}

func TrackCommandNpm() {
	TrackEvent(eventCommandNpm)
}

func TrackCommandPnpm() {
	TrackEvent(eventCommandPnpm)
}

func TrackCommandYarn() {
	TrackEvent(eventCommandYarn)
}

func TrackCommandBun() {
	TrackEvent(eventCommandBun)
}

func TrackCommandNpx() {
	TrackEvent(eventCommandNpx)
}

func TrackCommandPnpx() {
	TrackEvent(eventCommandPnpx)
}

func TrackCommandPip() {
	TrackEvent(eventCommandPip)
}

func TrackCommandPip3() {
	TrackEvent(eventCommandPip3)
}

func TrackCommandUv() {
	TrackEvent(eventCommandUv)
}

func TrackCommandPoetry() {
	TrackEvent(eventCommandPoetry)
}

func TrackCommandSetup() {
	TrackEvent(eventCommandSetup)
}

func TrackCommandRemove() {
	TrackEvent(eventCommandRemove)
}
