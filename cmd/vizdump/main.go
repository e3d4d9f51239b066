// Command vizdump replays a rosbag through the visualization core and
// reports the frames and point clouds it would render.
package main

import (
	"flag"
	"os"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/robosight/viz3d/ros"
	"github.com/robosight/viz3d/scene"
)

var logger = golog.NewDevelopmentLogger("vizdump")

func main() {
	if err := realMain(os.Args[1:]); err != nil {
		logger.Fatal(err)
	}
}

func realMain(args []string) error {
	flags := flag.NewFlagSet("vizdump", flag.ContinueOnError)
	bagFile := flags.String("bag", "", "rosbag file to inspect")
	fixedFrame := flags.String("fixed-frame", "map", "frame to resolve poses against")
	cloudTopic := flags.String("pointcloud-topic", "", "point cloud topic to decode")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *bagFile == "" {
		return errors.New("need to specify a rosbag file path with -bag")
	}

	rb, err := ros.ReadBag(*bagFile)
	if err != nil {
		return err
	}

	s := scene.NewScene(logger)
	s.SetFixedFrame(*fixedFrame)

	for _, tf := range []struct {
		topic    string
		isStatic bool
	}{
		{"/tf", false},
		{"/tf_static", true},
	} {
		batches, err := ros.TransformUpdates(rb, tf.topic)
		if err != nil {
			logger.Warnw("some transform messages failed to parse", "topic", tf.topic, "error", err)
		}
		for _, batch := range batches {
			s.ApplyTransforms(batch, tf.isStatic)
		}
		logger.Infow("applied transform batches", "topic", tf.topic, "count", len(batches))
	}

	if *cloudTopic != "" {
		msgs, err := ros.PointCloudMessages(rb, *cloudTopic)
		if err != nil {
			logger.Warnw("some point cloud messages failed to parse", "topic", *cloudTopic, "error", err)
		}
		for _, msg := range msgs {
			s.ApplyPointCloud(*cloudTopic, msg)
		}
	}

	snap := s.Snapshot()
	logger.Infow("resolved frames", "fixedFrame", snap.FixedFrame, "frames", s.FrameNames())
	for _, cloud := range snap.Clouds {
		logger.Infow("point cloud",
			"topic", cloud.ID,
			"frame", cloud.FrameID,
			"points", cloud.Size(),
			"colored", cloud.Colors != nil,
		)
	}
	return nil
}
