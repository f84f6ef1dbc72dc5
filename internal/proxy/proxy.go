// Package proxy talks to a D-Bus service on behalf of the rest of the
// module: it fetches ObjectManager tables, reads and writes properties and
// invokes methods, all through one destination-bound client.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
	"golang.org/x/time/rate"

	"github.com/stratis-storage/go-dbus-client-gen/internal/managed"
)

const (
	objectManagerInterface = "org.freedesktop.DBus.ObjectManager"
	propertiesInterface    = "org.freedesktop.DBus.Properties"
)

var (
	// ErrThrottled is returned when a managed-objects fetch is dropped by
	// the refresh rate limit.
	ErrThrottled = errors.New("managed objects refresh throttled")
)

// Connect opens a bus connection. A non-empty address wins over the bus
// kind; otherwise kind selects the system or session bus.
func Connect(kind, address string) (*dbus.Conn, error) {
	switch {
	case address != "":
		return dbus.Connect(address)
	case kind == "system":
		return dbus.ConnectSystemBus()
	default:
		return dbus.ConnectSessionBus()
	}
}

// caller is the slice of dbus.BusObject the client uses.
type caller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// Client issues calls against one destination on the bus.
type Client struct {
	dest    string
	manager dbus.ObjectPath
	object  func(path dbus.ObjectPath) caller
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithRefreshInterval throttles GetManagedObjects to at most one call per
// interval. Zero disables the throttle.
func WithRefreshInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
}

// NewClient binds a connection to one destination service and its object
// manager path.
func NewClient(conn *dbus.Conn, dest string, manager dbus.ObjectPath, opts ...Option) *Client {
	c := &Client{
		dest:    dest,
		manager: manager,
		object: func(path dbus.ObjectPath) caller {
			return conn.Object(dest, path)
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Destination returns the bus name the client calls.
func (c *Client) Destination() string {
	return c.dest
}

// GetManagedObjects fetches the full object table from the destination's
// object manager, subject to the refresh throttle.
func (c *Client) GetManagedObjects(ctx context.Context) (managed.ManagedObjects, error) {
	if c.limiter != nil && !c.limiter.Allow() {
		return nil, ErrThrottled
	}

	var raw map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	call := c.object(c.manager).CallWithContext(ctx, objectManagerInterface+".GetManagedObjects", 0)
	if err := call.Store(&raw); err != nil {
		return nil, fmt.Errorf("GetManagedObjects on %s%s: %w", c.dest, c.manager, err)
	}

	objects := make(managed.ManagedObjects, len(raw))
	for path, table := range raw {
		objects[path] = managed.ObjectTable(table)
	}
	return objects, nil
}

// GetProperty reads one property of one object through
// org.freedesktop.DBus.Properties.
func (c *Client) GetProperty(ctx context.Context, path dbus.ObjectPath, iface, prop string) (dbus.Variant, error) {
	var value dbus.Variant
	call := c.object(path).CallWithContext(ctx, propertiesInterface+".Get", 0, iface, prop)
	if err := call.Store(&value); err != nil {
		return dbus.Variant{}, fmt.Errorf("get %s.%s on %s: %w", iface, prop, path, err)
	}
	return value, nil
}

// SetProperty writes one property of one object.
func (c *Client) SetProperty(ctx context.Context, path dbus.ObjectPath, iface, prop string, value dbus.Variant) error {
	call := c.object(path).CallWithContext(ctx, propertiesInterface+".Set", 0, iface, prop, value)
	if call.Err != nil {
		return fmt.Errorf("set %s.%s on %s: %w", iface, prop, path, call.Err)
	}
	return nil
}

// Call invokes iface.method on the object at path and returns the reply
// body.
func (c *Client) Call(ctx context.Context, path dbus.ObjectPath, iface, method string, args ...interface{}) ([]interface{}, error) {
	call := c.object(path).CallWithContext(ctx, iface+"."+method, 0, args...)
	if call.Err != nil {
		return nil, fmt.Errorf("call %s.%s on %s: %w", iface, method, path, call.Err)
	}
	return call.Body, nil
}
