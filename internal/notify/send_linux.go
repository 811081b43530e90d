//go:build linux

package notify

import (
	"context"
	"time"

	"github.com/godbus/dbus/v5"
)

const sendTimeout = 3 * time.Second

// send posts a notification through org.freedesktop.Notifications.
func send(title, body string, opts options) error {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return err
	}
	defer conn.Close()

	hints := map[string]dbus.Variant{
		"desktop-entry": dbus.MakeVariant(appName),
	}
	obj := conn.Object("org.freedesktop.Notifications", "/org/freedesktop/Notifications")
	call := obj.CallWithContext(ctx, "org.freedesktop.Notifications.Notify", 0,
		appName, uint32(0), opts.iconPath, title, body, []string{}, hints, int32(opts.expire/time.Millisecond))
	return call.Err
}
