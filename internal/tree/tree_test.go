package tree

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ratiosplit/internal/ipc"
)

// A cut-down get_tree reply: root > output > workspace with two windows and
// one floating window.
const treePayload = `{
	"id": 1,
	"type": "root",
	"layout": "splith",
	"rect": {"x": 0, "y": 0, "width": 1920, "height": 1080},
	"nodes": [
		{
			"id": 2,
			"type": "output",
			"name": "eDP-1",
			"layout": "output",
			"rect": {"x": 0, "y": 0, "width": 1920, "height": 1080},
			"nodes": [
				{
					"id": 3,
					"type": "workspace",
					"name": "1",
					"layout": "splith",
					"rect": {"x": 0, "y": 0, "width": 1200, "height": 800},
					"nodes": [
						{"id": 4, "type": "con", "name": "editor", "layout": "splith", "rect": {"width": 600, "height": 800}, "nodes": []},
						{"id": 5, "type": "con", "name": "terminal", "layout": "splith", "focused": true, "rect": {"width": 600, "height": 800}, "nodes": []}
					],
					"floating_nodes": [
						{"id": 6, "type": "floating_con", "name": "popup", "layout": "splith", "rect": {"width": 300, "height": 200}, "nodes": []}
					]
				}
			]
		}
	]
}`

type fakeCommander struct {
	typ     ipc.MessageType
	payload []byte
	err     error
}

func (f *fakeCommander) SendCommand(typ ipc.MessageType, payload []byte) ([]byte, error) {
	f.typ = typ
	return f.payload, f.err
}

func TestFetch(t *testing.T) {
	c := &fakeCommander{payload: []byte(treePayload)}

	root, err := Fetch(c)
	require.NoError(t, err)
	require.Equal(t, ipc.MessageGetTree, c.typ)
	require.EqualValues(t, 1, root.ID)
	require.Len(t, root.Nodes, 1)

	ws := Find(root, 3)
	require.NotNil(t, ws)
	require.Equal(t, "workspace", ws.Type)
	require.Equal(t, 1200, ws.Rect.Width)
	require.Len(t, ws.Nodes, 2)
	require.True(t, ws.Nodes[1].Focused)
}

func TestFetchMalformed(t *testing.T) {
	c := &fakeCommander{payload: []byte(`{"id": 1, "nodes": [`)}
	_, err := Fetch(c)
	require.ErrorIs(t, err, ipc.ErrMalformed)

	c = &fakeCommander{payload: []byte(`{}`)}
	_, err = Fetch(c)
	require.ErrorIs(t, err, ipc.ErrMalformed)
}

func TestFind(t *testing.T) {
	c := &fakeCommander{payload: []byte(treePayload)}
	root, err := Fetch(c)
	require.NoError(t, err)

	require.NotNil(t, Find(root, 5))
	require.Equal(t, "terminal", Find(root, 5).Name)
	require.Equal(t, "popup", Find(root, 6).Name)
	require.Nil(t, Find(root, 99))
}

func TestFindParent(t *testing.T) {
	c := &fakeCommander{payload: []byte(treePayload)}
	root, err := Fetch(c)
	require.NoError(t, err)

	parent := FindParent(root, 5)
	require.NotNil(t, parent)
	require.EqualValues(t, 3, parent.ID)

	// the root has no parent, neither do unknown or floating ids
	require.Nil(t, FindParent(root, 1))
	require.Nil(t, FindParent(root, 6))
	require.Nil(t, FindParent(root, 99))
}

func TestOrientation(t *testing.T) {
	for layout, want := range map[string]Orientation{
		"splith":   Horizontal,
		"splitv":   Vertical,
		"stacked":  None,
		"tabbed":   None,
		"output":   None,
		"dockarea": None,
		"":         None,
	} {
		n := &Node{Layout: layout}
		require.Equalf(t, want, n.Orientation(), "layout %q", layout)
	}
}

func TestParseWindowEvent(t *testing.T) {
	ev, err := ParseWindowEvent([]byte(`{"change":"new","container":{"id":5,"name":"terminal"}}`))
	require.NoError(t, err)
	require.Equal(t, "new", ev.Change)
	require.EqualValues(t, 5, ev.Container.ID)

	_, err = ParseWindowEvent([]byte(`{"change":`))
	require.ErrorIs(t, err, ipc.ErrMalformed)

	_, err = ParseWindowEvent([]byte(`{}`))
	require.ErrorIs(t, err, ipc.ErrMalformed)
}
