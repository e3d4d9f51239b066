package pointcloud

import (
	"encoding/binary"
	"math"
)

// NumericType identifies the binary encoding of one field sample. The values
// match the ROS PointField wire constants.
type NumericType uint8

// The closed set of supported sample encodings.
const (
	TypeInt8 NumericType = iota + 1
	TypeUInt8
	TypeInt16
	TypeUInt16
	TypeInt32
	TypeUInt32
	TypeFloat32
	TypeFloat64
)

// Field describes one named channel within a packed point record.
type Field struct {
	Name     string
	Offset   int
	Datatype NumericType
	Count    int
}

// Message is one self-describing binary point-record batch: Width*Height
// records of PointStep bytes each, with samples laid out per Fields.
type Message struct {
	Frame     string
	Width     int
	Height    int
	Fields    []Field
	PointStep int
	BigEndian bool
	Data      []byte
}

func (m *Message) field(name string) *Field {
	for i := range m.Fields {
		if m.Fields[i].Name == name {
			return &m.Fields[i]
		}
	}
	return nil
}

func (m *Message) byteOrder() binary.ByteOrder {
	if m.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// size returns the sample width in bytes, or 0 for a type outside the
// closed set.
func (t NumericType) size() int {
	switch t {
	case TypeInt8, TypeUInt8:
		return 1
	case TypeInt16, TypeUInt16:
		return 2
	case TypeInt32, TypeUInt32, TypeFloat32:
		return 4
	case TypeFloat64:
		return 8
	default:
		return 0
	}
}

// fits reports whether every sample of the field lies inside a record of the
// given step; a field spilling past the record would read the next record's
// bytes, or past the buffer entirely on the final one.
func (f *Field) fits(step int) bool {
	return f.Offset >= 0 && f.Offset+f.Datatype.size() <= step
}

// sampleReader decodes one sample at the given byte offset into the buffer.
type sampleReader func(data []byte, offset int) float64

// readerFor binds a numeric type and byte order to a concrete decoder. The
// binding happens once per field, before the per-record loop, so type
// dispatch never runs per sample. Returns nil for a type outside the closed
// set.
func (t NumericType) readerFor(order binary.ByteOrder) sampleReader {
	switch t {
	case TypeInt8:
		return func(data []byte, offset int) float64 { return float64(int8(data[offset])) }
	case TypeUInt8:
		return func(data []byte, offset int) float64 { return float64(data[offset]) }
	case TypeInt16:
		return func(data []byte, offset int) float64 { return float64(int16(order.Uint16(data[offset:]))) }
	case TypeUInt16:
		return func(data []byte, offset int) float64 { return float64(order.Uint16(data[offset:])) }
	case TypeInt32:
		return func(data []byte, offset int) float64 { return float64(int32(order.Uint32(data[offset:]))) }
	case TypeUInt32:
		return func(data []byte, offset int) float64 { return float64(order.Uint32(data[offset:])) }
	case TypeFloat32:
		return func(data []byte, offset int) float64 { return float64(math.Float32frombits(order.Uint32(data[offset:]))) }
	case TypeFloat64:
		return func(data []byte, offset int) float64 { return math.Float64frombits(order.Uint64(data[offset:])) }
	default:
		return nil
	}
}
