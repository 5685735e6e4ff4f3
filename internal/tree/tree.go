// Package tree queries the window manager's layout tree and searches it for
// containers. A tree is rebuilt fresh on every fetch and never mutated in
// place; it belongs to whoever fetched it.
package tree

import (
	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"ratiosplit/internal/ipc"
)

// Orientation is the axis along which a container arranges its children.
type Orientation int

const (
	None Orientation = iota
	Horizontal
	Vertical
)

func (o Orientation) String() string {
	switch o {
	case Horizontal:
		return "horizontal"
	case Vertical:
		return "vertical"
	default:
		return "none"
	}
}

type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Node is one container in the layout tree, decoded straight from a
// get_tree reply.
type Node struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	Layout        string `json:"layout"`
	Focused       bool   `json:"focused"`
	Rect          Rect   `json:"rect"`
	Nodes         []Node `json:"nodes"`
	FloatingNodes []Node `json:"floating_nodes"`
}

// Orientation maps the container's layout to its split axis. Layouts with no
// axis (stacked, tabbed, output, dockarea) map to None.
func (n *Node) Orientation() Orientation {
	switch n.Layout {
	case "splith":
		return Horizontal
	case "splitv":
		return Vertical
	default:
		return None
	}
}

// WindowEvent is the payload of a window event frame.
type WindowEvent struct {
	Change    string `json:"change"`
	Container Node   `json:"container"`
}

// ParseWindowEvent decodes a window event payload.
func ParseWindowEvent(payload []byte) (WindowEvent, error) {
	var ev WindowEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return WindowEvent{}, errors.Wrapf(ipc.ErrMalformed, "window event payload: %s", err)
	}
	if ev.Change == "" {
		return WindowEvent{}, errors.Wrap(ipc.ErrMalformed, "window event without change field")
	}
	return ev, nil
}

// Commander is the command half of the transport.
type Commander interface {
	SendCommand(typ ipc.MessageType, payload []byte) ([]byte, error)
}

// Fetch retrieves the layout tree as the window manager sees it right now.
func Fetch(c Commander) (*Node, error) {
	reply, err := c.SendCommand(ipc.MessageGetTree, nil)
	if err != nil {
		return nil, err
	}

	var root Node
	if err := json.Unmarshal(reply, &root); err != nil {
		return nil, errors.Wrapf(ipc.ErrMalformed, "get_tree reply: %s", err)
	}
	if root.ID == 0 && len(root.Nodes) == 0 {
		return nil, errors.Wrap(ipc.ErrMalformed, "get_tree reply without nodes")
	}
	return &root, nil
}

// Find returns the container with the given id, or nil. Ids are unique
// across the tree; uniqueness is enforced by the window manager and trusted
// here.
func Find(root *Node, id int64) *Node {
	if root.ID == id {
		return root
	}
	for i := range root.Nodes {
		if n := Find(&root.Nodes[i], id); n != nil {
			return n
		}
	}
	for i := range root.FloatingNodes {
		if n := Find(&root.FloatingNodes[i], id); n != nil {
			return n
		}
	}
	return nil
}

// FindParent returns the container whose direct child has the given id, or
// nil when the id is not in the tree, is floating, or is the root itself.
func FindParent(root *Node, id int64) *Node {
	for i := range root.Nodes {
		if root.Nodes[i].ID == id {
			return root
		}
		if n := FindParent(&root.Nodes[i], id); n != nil {
			return n
		}
	}
	return nil
}
