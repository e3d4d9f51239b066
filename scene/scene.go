// Package scene composes the transform tree and point decoder into
// per-render-pass snapshots for the rendering collaborator.
package scene

import (
	"sort"
	"sync"

	"github.com/edaniels/golog"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/num/quat"

	"github.com/robosight/viz3d/pointcloud"
	"github.com/robosight/viz3d/ros"
	"github.com/robosight/viz3d/transform"
)

// RenderableCloud pairs a decoded point set with the resolved pose of its
// frame relative to the fixed frame. It exists only for the duration of one
// render pass.
type RenderableCloud struct {
	*pointcloud.PointSet
	Pose mgl64.Mat4
}

// Snapshot is everything the rendering layer needs for one pass. Lookup is
// the name to matrix table backing Frames.
type Snapshot struct {
	FixedFrame string
	Frames     []transform.FramePose
	Lookup     map[string]mgl64.Mat4
	Clouds     []RenderableCloud
}

// Scene owns one transform tree and one point decoder and keys resolved
// poses to the currently selected fixed frame. Like the engines it owns, a
// Scene expects to be driven from a single event loop.
type Scene struct {
	logger     golog.Logger
	tree       *transform.Tree
	decoder    *pointcloud.Decoder
	fixedFrame string

	// poses is the last resolution result, rebuilt when stale.
	poses *transform.PoseSet
	stale bool
}

// NewScene returns a Scene with empty engines and no fixed frame.
func NewScene(logger golog.Logger) *Scene {
	return &Scene{
		logger:  logger,
		tree:    transform.NewTree(logger),
		decoder: pointcloud.NewDecoder(logger),
		stale:   true,
	}
}

// SetFixedFrame selects the frame all poses are resolved against.
func (s *Scene) SetFixedFrame(name string) {
	name = transform.NormalizeFrameName(name)
	if name != s.fixedFrame {
		s.fixedFrame = name
		s.stale = true
	}
}

// FixedFrame returns the currently selected fixed frame.
func (s *Scene) FixedFrame() string {
	return s.fixedFrame
}

// ApplyTransforms feeds one transform batch to the tree and returns whether
// any edge changed.
func (s *Scene) ApplyTransforms(batch []transform.Update, isStatic bool) bool {
	changed := s.tree.ApplyUpdate(batch, isStatic)
	if changed {
		s.stale = true
	}
	return changed
}

// ApplyPointCloud feeds one point-record message to the decoder.
func (s *Scene) ApplyPointCloud(topicID string, msg *pointcloud.Message) *pointcloud.PointSet {
	return s.decoder.Decode(topicID, msg)
}

// DecodeAll parses a batch of topics concurrently, then applies the results
// in sorted topic order so the cache never depends on goroutine scheduling.
func (s *Scene) DecodeAll(msgs map[string]*pointcloud.Message) {
	topics := make([]string, 0, len(msgs))
	for topic := range msgs {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	results := make([]*pointcloud.PointSet, len(topics))
	var wg sync.WaitGroup
	for i, topic := range topics {
		wg.Add(1)
		i, topic := i, topic
		utils.PanicCapturingGo(func() {
			defer wg.Done()
			results[i] = pointcloud.Parse(topic, msgs[topic])
		})
	}
	wg.Wait()

	for i, topic := range topics {
		if results[i] == nil {
			s.logger.Debugw("declining point message", "topic", topic)
			continue
		}
		s.decoder.Store(topic, results[i])
	}
}

// Snapshot resolves poses if anything changed since the last pass and
// combines them with the decoder's cached point sets. A cloud whose frame is
// unknown to the tree renders at identity.
func (s *Scene) Snapshot() *Snapshot {
	if s.stale || s.poses == nil {
		s.poses = s.tree.ResolvePoses(s.fixedFrame)
		s.stale = false
	}
	snap := &Snapshot{FixedFrame: s.fixedFrame, Frames: s.poses.Poses, Lookup: s.poses.Lookup}
	for _, ps := range s.decoder.Cached() {
		mat, ok := s.poses.Lookup[ps.FrameID]
		if !ok {
			mat = mgl64.Ident4()
		}
		snap.Clouds = append(snap.Clouds, RenderableCloud{PointSet: ps, Pose: mat})
	}
	return snap
}

// FrameNames lists every frame a UI picker should offer: tree frames, the
// fixed frame, and the frames referenced by cached point data.
func (s *Scene) FrameNames() []string {
	extra := []string{s.fixedFrame}
	for _, ps := range s.decoder.Cached() {
		extra = append(extra, ps.FrameID)
	}
	return s.tree.ListFrames(extra...)
}

// DropTopic discards the cached point set for a topic the collaborator no
// longer subscribes to.
func (s *Scene) DropTopic(topicID string) {
	s.decoder.Drop(topicID)
}

// HandleSeek purges state that must not leak across a data-source
// discontinuity: dynamic transform edges and cached point sets. Static
// edges persist.
func (s *Scene) HandleSeek() {
	s.tree.ResetDynamic()
	s.decoder.ClearCache()
	s.stale = true
}

// Reset returns the scene to empty, dropping static edges too.
func (s *Scene) Reset() {
	s.tree.ClearAll()
	s.decoder.ClearCache()
	s.stale = true
}

// StampPose wraps an interactively authored pose in a publish envelope
// labeled with the current fixed frame.
func (s *Scene) StampPose(pt r3.Vector, rot quat.Number) *ros.PoseStamped {
	return ros.NewPoseStamped(s.fixedFrame, pt, rot)
}

// StampPoint wraps an interactively authored point in a publish envelope
// labeled with the current fixed frame.
func (s *Scene) StampPoint(pt r3.Vector) *ros.PointStamped {
	return ros.NewPointStamped(s.fixedFrame, pt)
}
