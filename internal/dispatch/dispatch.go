// Package dispatch runs the long-lived event loop: window-created event in,
// split and resize commands out.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/k0kubun/pp"
	"github.com/pkg/errors"

	"ratiosplit/internal/config"
	"ratiosplit/internal/ipc"
	"ratiosplit/internal/policy"
	"ratiosplit/internal/tree"
	"ratiosplit/pkg/slogext"
)

// State tracks where the dispatcher is in its lifecycle.
type State int

const (
	StateConnecting State = iota
	StateSubscribed
	StateDispatching
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	case StateDispatching:
		return "dispatching"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Conn is the slice of the transport the dispatcher needs.
type Conn interface {
	tree.Commander
	Subscribe(events ...string) error
	NextEvent() (ipc.Frame, error)
	RunCommand(cmd string) error
	Reconnect() error
}

var _ Conn = (*ipc.Transport)(nil)

const (
	defaultReconnectAttempts = 5
	defaultReconnectBackoff  = 500 * time.Millisecond
)

type Dispatcher struct {
	conn  Conn
	ratio float64
	state State

	reconnectAttempts int
	reconnectBackoff  time.Duration
}

func New(conn Conn, cfg config.Config) *Dispatcher {
	return &Dispatcher{
		conn:              conn,
		ratio:             cfg.Ratio,
		reconnectAttempts: defaultReconnectAttempts,
		reconnectBackoff:  defaultReconnectBackoff,
	}
}

func (d *Dispatcher) String() string {
	return "dispatch.Dispatcher"
}

// State reports the dispatcher's lifecycle state. Only meaningful from the
// goroutine running Serve.
func (d *Dispatcher) State() State {
	return d.state
}

// Serve subscribes to window events and processes them until ctx is done or
// the connection is lost beyond repair. Implements suture.Service.
func (d *Dispatcher) Serve(ctx context.Context) error {
	d.setState(StateConnecting)

	if err := d.conn.Subscribe("window"); err != nil {
		return errors.Wrap(err, "dispatch: subscribe to window events")
	}
	d.setState(StateSubscribed)

	slog.Info("Subscribed to window events")
	d.setState(StateDispatching)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		frame, err := d.conn.NextEvent()
		if err != nil {
			if errors.Is(err, ipc.ErrConnectionLost) {
				slog.Warn("Connection lost", "error", err)
				if err := d.reconnect(ctx); err != nil {
					return err
				}
				continue
			}
			slog.Error("Failed to read event", "error", err)
			continue
		}

		if frame.Type != ipc.EventWindow {
			slog.Debug("Ignoring event", "type", uint32(frame.Type))
			continue
		}

		event, err := tree.ParseWindowEvent(frame.Payload)
		if err != nil {
			slog.Error("Failed to parse window event", "error", err)
			continue
		}

		if event.Change != "new" {
			slog.Debug("Ignoring window change", "change", event.Change, "container", event.Container.ID)
			continue
		}

		slog.Info("New window created", "container", event.Container.ID, "name", event.Container.Name)
		d.handle(ctx, event.Container.ID)
	}
}

// handle adjusts one newly created window. Failures are logged and dropped;
// the window stays usable, just unresized, and the loop must keep running.
func (d *Dispatcher) handle(ctx context.Context, id int64) {
	log := slog.With("event", uuid.NewString()[:8], "container", id)

	root, err := tree.Fetch(d.conn)
	if err != nil {
		log.Error("Failed to fetch layout tree", "error", err)
		return
	}

	if log.Enabled(ctx, slogext.LevelTrace) {
		log.Log(ctx, slogext.LevelTrace, "Fetched layout tree", "tree", pp.Sprint(root))
	}

	parent := tree.FindParent(root, id)
	if parent == nil {
		log.Info("No parent container found, skipping")
		return
	}

	if parent.Orientation() == tree.None {
		log.Warn("Parent has no split axis, treating as unsplit", "layout", parent.Layout)
	}

	decision := policy.Decide(id, parent, d.ratio)

	if err := d.conn.RunCommand(decision.Split); err != nil {
		log.Warn("Split command failed, skipping resize", "command", decision.Split, "error", err)
		return
	}

	if decision.Resize == "" {
		log.Info("Alternated split", "parent", decision.Parent.String(), "target", decision.Target.String(), "children", len(parent.Nodes))
		return
	}

	if err := d.conn.RunCommand(decision.Resize); err != nil {
		log.Warn("Resize command failed", "command", decision.Resize, "error", err)
		return
	}

	log.Info("Alternated split and resized window",
		"parent", decision.Parent.String(),
		"target", decision.Target.String(),
		"ratio", d.ratio,
		"px", decision.TargetPx)
}

// reconnect re-dials with exponential backoff and re-subscribes. Exhausting
// the attempts is fatal to the service.
func (d *Dispatcher) reconnect(ctx context.Context) error {
	d.setState(StateReconnecting)

	backoff := d.reconnectBackoff
	var lastErr error
	for attempt := 1; attempt <= d.reconnectAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		slog.Info("Reconnecting", "attempt", attempt, "attempts", d.reconnectAttempts)
		if err := d.conn.Reconnect(); err != nil {
			lastErr = err
			slog.Warn("Reconnect failed", "attempt", attempt, "error", err)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		if err := d.conn.Subscribe("window"); err != nil {
			lastErr = err
			slog.Warn("Resubscribe failed", "error", err)
			continue
		}

		slog.Info("Connection restored")
		d.setState(StateDispatching)
		return nil
	}

	return errors.Wrapf(lastErr, "dispatch: gave up after %d reconnect attempts", d.reconnectAttempts)
}

func (d *Dispatcher) setState(s State) {
	d.state = s
	slog.Debug("Dispatcher state", "state", s.String())
}
