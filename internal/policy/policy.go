// Package policy decides the split and resize commands for a newly created
// window. It is pure: no sockets, no events, no config loading.
package policy

import (
	"fmt"
	"math"

	"ratiosplit/internal/tree"
)

// Decision is the command pair for one new window. Resize is empty when it
// must be suppressed: a single child already fills its parent, and a parent
// without an established axis has no dimension to resize along.
type Decision struct {
	Parent   tree.Orientation
	Target   tree.Orientation
	Split    string
	Resize   string
	TargetPx int
}

// Decide computes the commands for the window with the given id, just
// created inside parent. The next split alternates away from the parent's
// current axis, defaulting to horizontal when the parent has none. The new
// window is resized to ratio of the parent's dimension along the axis it
// divided, leaving the cross axis untouched.
func Decide(id int64, parent *tree.Node, ratio float64) Decision {
	current := parent.Orientation()

	target := tree.Horizontal
	if current == tree.Horizontal {
		target = tree.Vertical
	}

	d := Decision{
		Parent: current,
		Target: target,
		Split:  fmt.Sprintf("[con_id=%d] split %s", id, target),
	}

	if current == tree.None || len(parent.Nodes) < 2 {
		return d
	}

	dim, size := "width", parent.Rect.Width
	if current == tree.Vertical {
		dim, size = "height", parent.Rect.Height
	}

	d.TargetPx = int(math.Round(ratio * float64(size)))
	d.Resize = fmt.Sprintf("[con_id=%d] resize set %s %d ppt", id, dim, int(math.Round(ratio*100)))
	return d
}
