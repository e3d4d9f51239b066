package ros

import (
	"encoding/json"
	"io"
	"os"

	"github.com/edaniels/gobag/rosbag"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/robosight/viz3d/pointcloud"
	"github.com/robosight/viz3d/transform"
)

// ReadBag reads the contents of a rosbag into a gobag data structure.
func ReadBag(filename string) (*rosbag.RosBag, error) {
	//nolint:gosec
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open bag file %q", filename)
	}
	defer utils.UncheckedErrorFunc(f.Close)

	rb := rosbag.NewRosBag()
	if err := rb.Read(f); err != nil {
		return nil, errors.Wrapf(err, "unable to read bag file %q", filename)
	}

	return rb, nil
}

// rawMessagesForTopic parses the bag's messages for one topic into
// newline-delimited JSON and returns them one raw message at a time. A topic
// with no messages is not an error; bags routinely lack /tf_static.
func rawMessagesForTopic(rb *rosbag.RosBag, topic string) ([]json.RawMessage, error) {
	if err := rb.ParseTopicsToJSON(
		"",
		func(int64) bool { return true },
		func(t string) bool { return t == topic },
		false,
	); err != nil {
		return nil, errors.Wrapf(err, "error while parsing bag to JSON")
	}

	msgs := rb.TopicsAsJSON[topic]
	if msgs == nil {
		return nil, nil
	}

	var all []json.RawMessage
	for {
		data, err := msgs.ReadBytes('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return all, err
		}
		all = append(all, json.RawMessage(data[:len(data)-1]))
	}
	return all, nil
}

// TransformUpdates extracts every TF batch published on the topic, in bag
// order. Messages that fail to unmarshal are skipped and reported together
// in the returned error alongside whatever converted cleanly.
func TransformUpdates(rb *rosbag.RosBag, topic string) ([][]transform.Update, error) {
	raw, err := rawMessagesForTopic(rb, topic)
	if err != nil {
		return nil, err
	}
	var all error
	batches := make([][]transform.Update, 0, len(raw))
	for i, data := range raw {
		var m TfMessage
		if err := json.Unmarshal(data, &m); err != nil {
			multierr.AppendInto(&all, errors.Wrapf(err, "tf message %d on %s", i, topic))
			continue
		}
		batches = append(batches, m.Updates())
	}
	return batches, all
}

// PointCloudMessages extracts every point cloud published on the topic, in
// bag order, converted to the decoder's input form.
func PointCloudMessages(rb *rosbag.RosBag, topic string) ([]*pointcloud.Message, error) {
	raw, err := rawMessagesForTopic(rb, topic)
	if err != nil {
		return nil, err
	}
	var all error
	msgs := make([]*pointcloud.Message, 0, len(raw))
	for i, data := range raw {
		var m PointCloud2Message
		if err := json.Unmarshal(data, &m); err != nil {
			multierr.AppendInto(&all, errors.Wrapf(err, "point cloud message %d on %s", i, topic))
			continue
		}
		msgs = append(msgs, m.PointCloudMessage())
	}
	return msgs, all
}
