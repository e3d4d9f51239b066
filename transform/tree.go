// Package transform maintains a directed graph of named coordinate frames and
// resolves the pose of every known frame relative to a chosen fixed frame.
//
// The graph is fed by two logical channels: a continuously-updating dynamic
// channel whose edges are reset when the data source seeks, and a low-rate
// static channel whose edges persist. There is deliberately no error path in
// this package; a missing parent, a self-referencing frame, or a cycle all
// degrade to the identity transform so a momentarily-incomplete tree never
// halts rendering.
package transform

import (
	"sort"
	"strings"

	"github.com/edaniels/golog"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/robosight/viz3d/spatialmath"
)

// Update is one transform entry from an update batch: the pose of ChildFrame
// within ParentFrame. A zero-value Rotation is treated as the identity.
type Update struct {
	ChildFrame  string
	ParentFrame string
	Translation r3.Vector
	Rotation    quat.Number
}

// FramePose is the resolved pose of one frame relative to the fixed frame.
type FramePose struct {
	FrameID string
	Matrix  mgl64.Mat4
}

// PoseSet is the result of one resolution pass. Poses is in no particular
// order; Lookup is the authoritative name to matrix table.
type PoseSet struct {
	Poses  []FramePose
	Lookup map[string]mgl64.Mat4
}

// edge is the latest stored link for one child frame.
type edge struct {
	parent string
	mat    mgl64.Mat4
}

// Tree stores the latest transform edge per child frame and resolves frame
// poses on demand. It is not safe for concurrent use; the caller is expected
// to feed it one batch at a time from a single event loop.
type Tree struct {
	logger  golog.Logger
	dynamic map[string]edge
	static  map[string]edge
}

// NewTree returns an empty transform tree.
func NewTree(logger golog.Logger) *Tree {
	return &Tree{
		logger:  logger,
		dynamic: map[string]edge{},
		static:  map[string]edge{},
	}
}

// NormalizeFrameName strips a single leading path separator from a frame
// name. Other names are left unchanged; comparison stays case-sensitive.
func NormalizeFrameName(name string) string {
	return strings.TrimPrefix(name, "/")
}

// ApplyUpdate ingests one transform batch into the dynamic or static edge
// map. An entry with an empty child name is skipped. It returns whether at
// least one stored edge actually changed, so callers can skip redundant
// downstream recomputation; applying the same batch twice reports no change
// the second time.
func (t *Tree) ApplyUpdate(batch []Update, isStatic bool) bool {
	target := t.dynamic
	if isStatic {
		target = t.static
	}
	changed := false
	for _, u := range batch {
		child := NormalizeFrameName(u.ChildFrame)
		if child == "" {
			continue
		}
		parent := NormalizeFrameName(u.ParentFrame)
		mat := spatialmath.NewPose(u.Translation, u.Rotation).Mat4()
		if prev, ok := target[child]; ok && prev.parent == parent && spatialmath.Mat4Equal(prev.mat, mat) {
			continue
		}
		target[child] = edge{parent: parent, mat: mat}
		changed = true
	}
	return changed
}

// ResetDynamic clears the dynamic edge map only. Used when the data source
// seeks or rewinds and cumulative state must not leak across the
// discontinuity; static edges persist.
func (t *Tree) ResetDynamic() {
	t.dynamic = map[string]edge{}
}

// ClearAll clears both edge maps.
func (t *Tree) ClearAll() {
	t.dynamic = map[string]edge{}
	t.static = map[string]edge{}
}

// frameSet collects every frame name appearing as a child or parent in
// either map.
func (t *Tree) frameSet() map[string]struct{} {
	names := map[string]struct{}{}
	for _, m := range []map[string]edge{t.dynamic, t.static} {
		for child, e := range m {
			names[child] = struct{}{}
			if e.parent != "" {
				names[e.parent] = struct{}{}
			}
		}
	}
	return names
}

// ListFrames returns the sorted unique non-empty frame names known to the
// tree, plus any caller-supplied extras (the fixed frame, frames referenced
// by point data). Meant for populating UI pickers, not render logic.
func (t *Tree) ListFrames(extra ...string) []string {
	names := t.frameSet()
	for _, name := range extra {
		if name = NormalizeFrameName(name); name != "" {
			names[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// lookup finds the stored edge for a child frame, with dynamic edges taking
// precedence over static ones.
func (t *Tree) lookup(name string) (edge, bool) {
	if e, ok := t.dynamic[name]; ok {
		return e, true
	}
	e, ok := t.static[name]
	return e, ok
}

// ResolvePoses computes the pose of every known frame relative to fixedFrame
// (or to the implicit root when fixedFrame is empty). Resolution never
// mutates stored edges, and the memoization cache lives only for the
// duration of this call; edges may have changed by the next one.
func (t *Tree) ResolvePoses(fixedFrame string) *PoseSet {
	fixedFrame = NormalizeFrameName(fixedFrame)
	names := t.frameSet()
	if fixedFrame != "" {
		names[fixedFrame] = struct{}{}
	}

	memo := make(map[string]mgl64.Mat4, len(names))
	invFixed := mgl64.Ident4()
	if fixedFrame != "" {
		invFixed = t.worldMatrix(fixedFrame, memo, map[string]bool{}).Inv()
	}

	set := &PoseSet{
		Poses:  make([]FramePose, 0, len(names)),
		Lookup: make(map[string]mgl64.Mat4, len(names)),
	}
	for name := range names {
		rel := invFixed.Mul4(t.worldMatrix(name, memo, map[string]bool{}))
		set.Poses = append(set.Poses, FramePose{FrameID: name, Matrix: rel})
		set.Lookup[name] = rel
	}
	return set
}

// worldMatrix walks parent links from the named frame to the root,
// composing local transforms. The chain ends, resolving to identity at that
// point, when a frame has no stored edge, names itself as parent, or is
// already being resolved on the current walk. The last case guarantees
// termination on any cycle without raising an error.
func (t *Tree) worldMatrix(name string, memo map[string]mgl64.Mat4, visiting map[string]bool) mgl64.Mat4 {
	if m, ok := memo[name]; ok {
		return m
	}
	if visiting[name] {
		return mgl64.Ident4()
	}
	e, ok := t.lookup(name)
	if !ok || e.parent == name {
		m := mgl64.Ident4()
		memo[name] = m
		return m
	}
	visiting[name] = true
	m := t.worldMatrix(e.parent, memo, visiting).Mul4(e.mat)
	delete(visiting, name)
	memo[name] = m
	return m
}
