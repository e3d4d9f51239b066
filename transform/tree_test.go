package transform

import (
	"testing"

	"github.com/edaniels/golog"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"

	"github.com/robosight/viz3d/spatialmath"
)

var identRot = quat.Number{Real: 1}

func TestApplyUpdateIdempotent(t *testing.T) {
	tree := NewTree(golog.NewTestLogger(t))
	batch := []Update{
		{ChildFrame: "base", ParentFrame: "map", Translation: r3.Vector{X: 1}, Rotation: identRot},
		{ChildFrame: "lidar", ParentFrame: "base", Rotation: identRot},
	}
	test.That(t, tree.ApplyUpdate(batch, false), test.ShouldBeTrue)
	test.That(t, tree.ApplyUpdate(batch, false), test.ShouldBeFalse)

	// a numerically different matrix is a change
	batch[0].Translation.X = 2
	test.That(t, tree.ApplyUpdate(batch, false), test.ShouldBeTrue)

	// so is a reparent with the same matrix
	batch[0].ParentFrame = "odom"
	test.That(t, tree.ApplyUpdate(batch, false), test.ShouldBeTrue)
}

func TestApplyUpdateSkipsEmptyChild(t *testing.T) {
	tree := NewTree(golog.NewTestLogger(t))
	changed := tree.ApplyUpdate([]Update{{ChildFrame: "", ParentFrame: "map"}}, false)
	test.That(t, changed, test.ShouldBeFalse)
	test.That(t, tree.ListFrames(), test.ShouldHaveLength, 0)
}

func TestNormalizeFrameName(t *testing.T) {
	test.That(t, NormalizeFrameName("/base_link"), test.ShouldEqual, "base_link")
	test.That(t, NormalizeFrameName("base_link"), test.ShouldEqual, "base_link")
	test.That(t, NormalizeFrameName("//odd"), test.ShouldEqual, "/odd")
}

func TestResolvePosesChain(t *testing.T) {
	tree := NewTree(golog.NewTestLogger(t))
	tree.ApplyUpdate([]Update{
		{ChildFrame: "B", ParentFrame: "A", Rotation: identRot},
		{ChildFrame: "C", ParentFrame: "B", Translation: r3.Vector{X: 1}, Rotation: identRot},
	}, false)

	set := tree.ResolvePoses("A")
	c, ok := set.Lookup["C"]
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, c.At(0, 3), test.ShouldAlmostEqual, 1)
	test.That(t, c.At(1, 3), test.ShouldAlmostEqual, 0)
	test.That(t, c.At(2, 3), test.ShouldAlmostEqual, 0)

	// the fixed frame relative to itself is always identity
	test.That(t, spatialmath.Mat4Equal(set.Lookup["A"], mgl64.Ident4()), test.ShouldBeTrue)

	// with no fixed frame, world matrices come back unchanged
	raw := tree.ResolvePoses("")
	test.That(t, raw.Lookup["C"].At(0, 3), test.ShouldAlmostEqual, 1)
}

func TestResolvePosesMissingParent(t *testing.T) {
	tree := NewTree(golog.NewTestLogger(t))
	tree.ApplyUpdate([]Update{
		{ChildFrame: "lidar", ParentFrame: "ghost", Translation: r3.Vector{Y: 3}, Rotation: identRot},
	}, false)

	set := tree.ResolvePoses("ghost")
	// the unknown parent resolves to identity and the child keeps its local offset
	test.That(t, spatialmath.Mat4Equal(set.Lookup["ghost"], mgl64.Ident4()), test.ShouldBeTrue)
	test.That(t, set.Lookup["lidar"].At(1, 3), test.ShouldAlmostEqual, 3)
}

func TestResolvePosesCycles(t *testing.T) {
	tree := NewTree(golog.NewTestLogger(t))

	// length-1 cycle: a frame naming itself as parent
	tree.ApplyUpdate([]Update{{ChildFrame: "self", ParentFrame: "self", Rotation: identRot}}, false)
	// length-2 cycle with identity edges
	tree.ApplyUpdate([]Update{
		{ChildFrame: "A", ParentFrame: "B", Rotation: identRot},
		{ChildFrame: "B", ParentFrame: "A", Rotation: identRot},
	}, false)

	set := tree.ResolvePoses("self")
	for _, name := range []string{"self", "A", "B"} {
		test.That(t, spatialmath.Mat4Equal(set.Lookup[name], mgl64.Ident4()), test.ShouldBeTrue)
	}
}

func TestDynamicShadowsStatic(t *testing.T) {
	tree := NewTree(golog.NewTestLogger(t))
	tree.ApplyUpdate([]Update{
		{ChildFrame: "base", ParentFrame: "map", Translation: r3.Vector{X: 5}, Rotation: identRot},
	}, true)
	tree.ApplyUpdate([]Update{
		{ChildFrame: "base", ParentFrame: "map", Translation: r3.Vector{X: 7}, Rotation: identRot},
	}, false)

	set := tree.ResolvePoses("map")
	test.That(t, set.Lookup["base"].At(0, 3), test.ShouldAlmostEqual, 7)

	// dynamic edges vanish on seek, static ones persist
	tree.ResetDynamic()
	set = tree.ResolvePoses("map")
	test.That(t, set.Lookup["base"].At(0, 3), test.ShouldAlmostEqual, 5)

	tree.ClearAll()
	test.That(t, tree.ListFrames(), test.ShouldHaveLength, 0)
}

func TestListFrames(t *testing.T) {
	tree := NewTree(golog.NewTestLogger(t))
	tree.ApplyUpdate([]Update{
		{ChildFrame: "/camera", ParentFrame: "base", Rotation: identRot},
	}, false)
	tree.ApplyUpdate([]Update{
		{ChildFrame: "base", ParentFrame: "map", Rotation: identRot},
	}, true)

	frames := tree.ListFrames("odom", "/camera", "")
	test.That(t, frames, test.ShouldResemble, []string{"base", "camera", "map", "odom"})
}

func TestResolvePosesRotationChain(t *testing.T) {
	tree := NewTree(golog.NewTestLogger(t))
	// child one unit along X of a parent rotated 180 degrees about Z
	tree.ApplyUpdate([]Update{
		{ChildFrame: "turned", ParentFrame: "map", Rotation: quat.Number{Kmag: 1}},
		{ChildFrame: "tip", ParentFrame: "turned", Translation: r3.Vector{X: 1}, Rotation: identRot},
	}, false)

	set := tree.ResolvePoses("map")
	tip := set.Lookup["tip"]
	test.That(t, tip.At(0, 3), test.ShouldAlmostEqual, -1, 1e-12)
	test.That(t, tip.At(1, 3), test.ShouldAlmostEqual, 0, 1e-12)
}

func TestResolvePosesPure(t *testing.T) {
	tree := NewTree(golog.NewTestLogger(t))
	tree.ApplyUpdate([]Update{
		{ChildFrame: "base", ParentFrame: "map", Translation: r3.Vector{Z: 2}, Rotation: identRot},
	}, false)

	first := tree.ResolvePoses("map")
	second := tree.ResolvePoses("map")
	test.That(t, second.Lookup, test.ShouldResemble, first.Lookup)

	// a fresh cache per call means edge changes are always observed
	tree.ApplyUpdate([]Update{
		{ChildFrame: "base", ParentFrame: "map", Translation: r3.Vector{Z: 9}, Rotation: identRot},
	}, false)
	third := tree.ResolvePoses("map")
	test.That(t, third.Lookup["base"].At(2, 3), test.ShouldAlmostEqual, 9)
}
