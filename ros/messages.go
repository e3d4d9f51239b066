// Package ros bridges ROS-shaped sensor messages into the visualization core.
package ros

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/robosight/viz3d/pointcloud"
	"github.com/robosight/viz3d/transform"
)

// TransformStamped is one entry of a TF batch: the pose of ChildFrameId
// within the header's frame.
type TransformStamped struct {
	Header struct {
		Seq   int
		Stamp struct {
			Secs  int
			Nsecs int
		}
		FrameId string `json:"frame_id"`
	}
	ChildFrameId string `json:"child_frame_id"`
	Transform    struct {
		Translation struct {
			X float64
			Y float64
			Z float64
		}
		Rotation struct {
			X float64
			Y float64
			Z float64
			W float64
		}
	}
}

// TfMessage is a TF update batch as parsed out of a rosbag.
type TfMessage struct {
	Meta struct {
		Secs  int
		Nsecs int
	}
	Data struct {
		Transforms []TransformStamped
	}
}

// Updates converts the batch into transform graph updates. Missing
// translations default to zero and missing rotations to identity downstream.
func (m *TfMessage) Updates() []transform.Update {
	out := make([]transform.Update, 0, len(m.Data.Transforms))
	for _, ts := range m.Data.Transforms {
		tr := ts.Transform.Translation
		rot := ts.Transform.Rotation
		out = append(out, transform.Update{
			ChildFrame:  ts.ChildFrameId,
			ParentFrame: ts.Header.FrameId,
			Translation: r3.Vector{X: tr.X, Y: tr.Y, Z: tr.Z},
			Rotation:    quat.Number{Real: rot.W, Imag: rot.X, Jmag: rot.Y, Kmag: rot.Z},
		})
	}
	return out
}

// PointCloud2Message is a sensor_msgs/PointCloud2 as parsed out of a rosbag.
// Data arrives base64-encoded in the JSON and unmarshals straight to bytes.
type PointCloud2Message struct {
	Meta struct {
		Secs  int
		Nsecs int
	}
	Data struct {
		Header struct {
			Seq   int
			Stamp struct {
				Secs  int
				Nsecs int
			}
			FrameId string `json:"frame_id"`
		}
		Height int
		Width  int
		Fields []struct {
			Name     string
			Offset   int
			Datatype uint8
			Count    int
		}
		IsBigendian bool `json:"is_bigendian"`
		PointStep   int  `json:"point_step"`
		RowStep     int  `json:"row_step"`
		Data        []byte
		IsDense     bool `json:"is_dense"`
	}
}

// PointCloudMessage converts the message into the decoder's input form.
func (m *PointCloud2Message) PointCloudMessage() *pointcloud.Message {
	fields := make([]pointcloud.Field, 0, len(m.Data.Fields))
	for _, f := range m.Data.Fields {
		fields = append(fields, pointcloud.Field{
			Name:     f.Name,
			Offset:   f.Offset,
			Datatype: pointcloud.NumericType(f.Datatype),
			Count:    f.Count,
		})
	}
	return &pointcloud.Message{
		Frame:     m.Data.Header.FrameId,
		Width:     m.Data.Width,
		Height:    m.Data.Height,
		Fields:    fields,
		PointStep: m.Data.PointStep,
		BigEndian: m.Data.IsBigendian,
		Data:      m.Data.Data,
	}
}

// PoseStamped is the envelope for an interactively published pose. Only the
// frame lineage label matters to the core; the collaborator owns the full
// schema.
type PoseStamped struct {
	Header struct {
		Stamp struct {
			Secs  int
			Nsecs int
		}
		FrameId string `json:"frame_id"`
	}
	Pose struct {
		Position struct {
			X float64
			Y float64
			Z float64
		}
		Orientation struct {
			X float64
			Y float64
			Z float64
			W float64
		}
	}
}

// PointStamped is the envelope for an interactively published point.
type PointStamped struct {
	Header struct {
		Stamp struct {
			Secs  int
			Nsecs int
		}
		FrameId string `json:"frame_id"`
	}
	Point struct {
		X float64
		Y float64
		Z float64
	}
}

// NewPoseStamped labels a pose with the frame it was authored in.
func NewPoseStamped(frame string, pt r3.Vector, rot quat.Number) *PoseStamped {
	m := &PoseStamped{}
	m.Header.FrameId = frame
	m.Pose.Position.X, m.Pose.Position.Y, m.Pose.Position.Z = pt.X, pt.Y, pt.Z
	m.Pose.Orientation.W = rot.Real
	m.Pose.Orientation.X = rot.Imag
	m.Pose.Orientation.Y = rot.Jmag
	m.Pose.Orientation.Z = rot.Kmag
	return m
}

// NewPointStamped labels a point with the frame it was authored in.
func NewPointStamped(frame string, pt r3.Vector) *PointStamped {
	m := &PointStamped{}
	m.Header.FrameId = frame
	m.Point.X, m.Point.Y, m.Point.Z = pt.X, pt.Y, pt.Z
	return m
}
