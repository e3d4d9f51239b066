package ros

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestReadBagMissingFile(t *testing.T) {
	rb, err := ReadBag(filepath.Join(t.TempDir(), "nope.bag"))
	test.That(t, rb, test.ShouldBeNil)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unable to open bag file")
}

func TestReadBagNotABag(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "garbage.bag")
	test.That(t, os.WriteFile(fn, []byte("not a rosbag"), 0o600), test.ShouldBeNil)

	rb, err := ReadBag(fn)
	test.That(t, rb, test.ShouldBeNil)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unable to read bag file")
}