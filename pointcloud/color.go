package pointcloud

import (
	"encoding/binary"

	"github.com/chewxy/math32"
)

// Color channels for records whose color field has a type outside the
// handled encodings.
const fallbackChannel = float32(0.5)

// Color field names in selection priority order.
var colorFieldNames = []string{"rgb", "rgba", "intensity"}

// colorReader produces normalized [0,1] RGB channels for one record.
type colorReader func(data []byte, offset int) (r, g, b float32)

// colorSampleWidth returns how many bytes the bound color reader reads per
// record, 0 for the fallback reader which reads none.
func colorSampleWidth(t NumericType) int {
	switch t {
	case TypeFloat32, TypeInt32, TypeUInt32:
		return 4
	case TypeInt8, TypeUInt8:
		return 1
	case TypeFloat64:
		return 8
	default:
		return 0
	}
}

// colorReaderFor binds a color field's type to a channel extractor.
//
// Packed 32-bit types (float32-as-bits, uint32, int32) are unpacked from the
// decoded 32-bit value as 0xRRGGBB regardless of the message's stated
// endianness: byte 2 is red, byte 1 green, byte 0 blue, each divided by 255
// with no further clamping. 8-bit types are a single grayscale intensity
// divided by 255. A 64-bit float is an intensity already in [0,1], clamped
// into range. Anything else yields a fixed fallback color.
func colorReaderFor(t NumericType, order binary.ByteOrder) colorReader {
	switch t {
	case TypeFloat32, TypeInt32, TypeUInt32:
		return func(data []byte, offset int) (float32, float32, float32) {
			v := order.Uint32(data[offset:])
			return float32((v>>16)&0xff) / 255, float32((v>>8)&0xff) / 255, float32(v&0xff) / 255
		}
	case TypeInt8, TypeUInt8:
		read := t.readerFor(order)
		return func(data []byte, offset int) (float32, float32, float32) {
			c := float32(read(data, offset)) / 255
			return c, c, c
		}
	case TypeFloat64:
		read := t.readerFor(order)
		return func(data []byte, offset int) (float32, float32, float32) {
			c := math32.Min(math32.Max(float32(read(data, offset)), 0), 1)
			return c, c, c
		}
	default:
		return func([]byte, int) (float32, float32, float32) {
			return fallbackChannel, fallbackChannel, fallbackChannel
		}
	}
}
