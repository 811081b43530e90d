//go:build darwin

package notify

import (
	"fmt"
	"os/exec"
)

// send uses Notification Center through osascript.
func send(title, body string, _ options) error {
	script := fmt.Sprintf("display notification %q with title %q", body, title)
	return exec.Command("osascript", "-e", script).Run()
}
