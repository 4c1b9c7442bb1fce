package notify

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"text/template"

	"bdbm/internal/battery"
	appLog "bdbm/internal/log"
)

// Title is used for every low-battery notification.
const Title = "Bluetooth Battery Monitor"

// Notifier delivers a desktop notification.
type Notifier interface {
	Notify(ctx context.Context, title, msg string) error
}

var lowBatteryTmpl = template.Must(template.New("low").Parse(
	`Battery charge for {{.Device}} is at {{.Percent}}%.`))

// LowBatteryMessage renders the warning text for s.
func LowBatteryMessage(s battery.Status) string {
	var b strings.Builder
	if err := lowBatteryTmpl.Execute(&b, s); err != nil {
		return fmt.Sprintf("Battery charge for %s is at %d%%.", s.Device, s.Percent)
	}
	return b.String()
}

type commandRunner func(ctx context.Context, name string, args ...string) error

func execRun(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// OSAScript shows macOS notifications through `osascript -e`.
type OSAScript struct {
	run commandRunner
	log *appLog.Logger
}

func NewOSAScript(logger *appLog.Logger) *OSAScript {
	if logger == nil {
		logger = appLog.Discard()
	}
	return &OSAScript{run: execRun, log: logger.With("component", "notify")}
}

func (o *OSAScript) Notify(ctx context.Context, title, msg string) error {
	script := Script(title, msg)
	o.log.Debug("applescript", "script", script)
	if err := o.run(ctx, "osascript", "-e", script); err != nil {
		return fmt.Errorf("notify: osascript: %w", err)
	}
	return nil
}

// Script builds the AppleScript `display notification` statement with both
// strings quoted for AppleScript.
func Script(title, msg string) string {
	return fmt.Sprintf("display notification %s with title %s", quote(msg), quote(title))
}

var appleScriptEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func quote(s string) string {
	return `"` + appleScriptEscaper.Replace(s) + `"`
}

// LogNotifier writes notifications to a logger. It stands in on platforms
// without a notification center.
type LogNotifier struct {
	log *appLog.Logger
}

func NewLogNotifier(logger *appLog.Logger) *LogNotifier {
	if logger == nil {
		logger = appLog.Default()
	}
	return &LogNotifier{log: logger.With("component", "notify")}
}

func (l *LogNotifier) Notify(_ context.Context, title, msg string) error {
	l.log.Info("notification", "title", title, "message", msg)
	return nil
}

// Default returns OSAScript on macOS and a LogNotifier elsewhere.
func Default(logger *appLog.Logger) Notifier {
	if runtime.GOOS == "darwin" {
		return NewOSAScript(logger)
	}
	return NewLogNotifier(logger)
}

// LowBattery sends one notification per device below warn and returns how
// many were sent. Delivery failures are logged and do not stop the loop.
func LowBattery(ctx context.Context, n Notifier, statuses []battery.Status, warn int, logger *appLog.Logger) int {
	if logger == nil {
		logger = appLog.Discard()
	}
	sent := 0
	for _, s := range battery.BelowThreshold(statuses, warn) {
		if err := n.Notify(ctx, Title, LowBatteryMessage(s)); err != nil {
			logger.Error("low battery notification failed", err, "device", s.Device, "percent", s.Percent)
			continue
		}
		sent++
	}
	return sent
}
