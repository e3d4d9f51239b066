// Package pointcloud decodes self-describing binary point-cloud records into
// typed position and color buffers ready for rendering.
//
// Decoding never returns an error: a structurally invalid message simply
// yields no result, and individual records with non-finite coordinates are
// dropped. Sensor streams are frequently transiently malformed and the
// decoder must degrade rather than interrupt live visualization.
package pointcloud

import (
	"math"
	"sort"
	"strings"

	"github.com/edaniels/golog"
)

// DefaultFrame is assumed for messages that do not name a source frame.
const DefaultFrame = "map"

// PointSet is the decoded form of one point-record message: flat triples of
// float32 positions and, when the message carried a color field, matching
// triples of RGB channels normalized to [0,1].
type PointSet struct {
	ID        string
	FrameID   string
	Positions []float32
	Colors    []float32
}

// Size returns the number of decoded points.
func (ps *PointSet) Size() int {
	return len(ps.Positions) / 3
}

// Parse decodes one message into a PointSet, or returns nil when the message
// is structurally invalid or contains no finite records. It reads only its
// arguments, so callers may parse different topics concurrently.
func Parse(topicID string, msg *Message) *PointSet {
	count := msg.Width * msg.Height
	if count <= 0 || msg.PointStep <= 0 {
		return nil
	}
	if len(msg.Data) < msg.PointStep*count {
		return nil
	}

	xField, yField, zField := msg.field("x"), msg.field("y"), msg.field("z")
	if xField == nil || yField == nil || zField == nil {
		return nil
	}
	for _, f := range []*Field{xField, yField, zField} {
		if !f.fits(msg.PointStep) {
			return nil
		}
	}

	order := msg.byteOrder()
	readX := xField.Datatype.readerFor(order)
	readY := yField.Datatype.readerFor(order)
	readZ := zField.Datatype.readerFor(order)
	if readX == nil || readY == nil || readZ == nil {
		return nil
	}

	var colorField *Field
	for _, name := range colorFieldNames {
		if colorField = msg.field(name); colorField != nil {
			break
		}
	}
	// the fallback reader for an unhandled color encoding touches no bytes,
	// so only the handled encodings need to fit the record
	if colorField != nil {
		if w := colorSampleWidth(colorField.Datatype); w > 0 &&
			(colorField.Offset < 0 || colorField.Offset+w > msg.PointStep) {
			return nil
		}
	}

	positions := make([]float32, 0, 3*count)
	var colors []float32
	var readColor colorReader
	if colorField != nil {
		colors = make([]float32, 0, 3*count)
		readColor = colorReaderFor(colorField.Datatype, order)
	}

	for i := 0; i < count; i++ {
		base := i * msg.PointStep
		x := readX(msg.Data, base+xField.Offset)
		y := readY(msg.Data, base+yField.Offset)
		z := readZ(msg.Data, base+zField.Offset)
		if !finite(x) || !finite(y) || !finite(z) {
			continue
		}
		positions = append(positions, float32(x), float32(y), float32(z))
		if colorField != nil {
			r, g, b := readColor(msg.Data, base+colorField.Offset)
			colors = append(colors, r, g, b)
		}
	}
	if len(positions) == 0 {
		return nil
	}

	frame := strings.TrimPrefix(msg.Frame, "/")
	if frame == "" {
		frame = DefaultFrame
	}
	return &PointSet{ID: topicID, FrameID: frame, Positions: positions, Colors: colors}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Decoder decodes point-record messages and caches the latest decoded set
// per topic. Like the transform tree it is fed from a single event loop and
// holds no locks.
type Decoder struct {
	logger golog.Logger
	cache  map[string]*PointSet
}

// NewDecoder returns a Decoder with an empty cache.
func NewDecoder(logger golog.Logger) *Decoder {
	return &Decoder{logger: logger, cache: map[string]*PointSet{}}
}

// Decode parses one message and, on success, replaces the topic's cached
// PointSet with the result. A declined message leaves the cache untouched.
func (d *Decoder) Decode(topicID string, msg *Message) *PointSet {
	ps := Parse(topicID, msg)
	if ps == nil {
		d.logger.Debugw("declining point message", "topic", topicID)
		return nil
	}
	d.cache[topicID] = ps
	return ps
}

// Store places an externally parsed PointSet into the cache, replacing any
// prior entry for the same topic.
func (d *Decoder) Store(topicID string, ps *PointSet) {
	d.cache[topicID] = ps
}

// Lookup returns the cached PointSet for a topic, if any.
func (d *Decoder) Lookup(topicID string) (*PointSet, bool) {
	ps, ok := d.cache[topicID]
	return ps, ok
}

// Drop removes a topic's cached PointSet, for when the collaborator
// unsubscribes from the topic.
func (d *Decoder) Drop(topicID string) {
	delete(d.cache, topicID)
}

// ClearCache removes every cached PointSet, for when the data source seeks.
func (d *Decoder) ClearCache() {
	d.cache = map[string]*PointSet{}
}

// Cached returns every cached PointSet sorted by topic ID so downstream
// consumers see a deterministic order.
func (d *Decoder) Cached() []*PointSet {
	out := make([]*PointSet, 0, len(d.cache))
	for _, ps := range d.cache {
		out = append(out, ps)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
