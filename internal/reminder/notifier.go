package reminder

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// DefaultCommand is the desktop notification command used when none is configured.
const DefaultCommand = "notify-send"

// CommandNotifier delivers reminders through an external desktop command.
// The title and body are appended as the last two arguments.
type CommandNotifier struct {
	Command string
}

// RequestPermission reports whether the command can be found on PATH.
func (n CommandNotifier) RequestPermission(_ context.Context) bool {
	parts := strings.Fields(n.Command)
	if len(parts) == 0 {
		return false
	}
	_, err := exec.LookPath(parts[0])
	return err == nil
}

// Notify runs the command.
func (n CommandNotifier) Notify(ctx context.Context, title, body string) error {
	parts := strings.Fields(n.Command)
	if len(parts) == 0 {
		return fmt.Errorf("notification command is empty")
	}
	args := append(append([]string(nil), parts[1:]...), title, body)
	if out, err := exec.CommandContext(ctx, parts[0], args...).CombinedOutput(); err != nil {
		return fmt.Errorf("failed to run %s: %w: %s", parts[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}

// AlertNotifier writes a terminal bell and the reminder text.
type AlertNotifier struct {
	W io.Writer
}

// Notify writes the alert.
func (n AlertNotifier) Notify(_ context.Context, title, body string) error {
	_, err := fmt.Fprintf(n.W, "\a%s\n%s\n", title, body)
	return err
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, title, body string) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, title, body string) error {
	return f(ctx, title, body)
}
