package orm

import (
	"github.com/gogo/protobuf/proto"

	"github.com/iov-one/loom/errors"
)

const (
	wireVarint = 0
	wireBytes  = 2
)

// ProtoWriter appends fields in protobuf wire format.
// Zero values are omitted, as proto3 does.
type ProtoWriter struct {
	buf []byte
}

// Uint writes a varint field
func (w *ProtoWriter) Uint(field int, v uint64) {
	if v == 0 {
		return
	}
	w.buf = append(w.buf, proto.EncodeVarint(uint64(field<<3|wireVarint))...)
	w.buf = append(w.buf, proto.EncodeVarint(v)...)
}

// Int writes a signed varint field (int64 encoding, not zigzag)
func (w *ProtoWriter) Int(field int, v int64) {
	w.Uint(field, uint64(v))
}

// Bytes writes a length delimited field
func (w *ProtoWriter) Bytes(field int, b []byte) {
	if len(b) == 0 {
		return
	}
	w.buf = append(w.buf, proto.EncodeVarint(uint64(field<<3|wireBytes))...)
	w.buf = append(w.buf, proto.EncodeVarint(uint64(len(b)))...)
	w.buf = append(w.buf, b...)
}

// Result returns the encoded message
func (w *ProtoWriter) Result() []byte {
	return w.buf
}

// ReadProtoFields walks all fields of a protobuf encoded message.
// For varint fields v holds the value, for length delimited fields
// b holds a copy of the content. Other wire types are rejected.
func ReadProtoFields(bz []byte, fn func(field int, v uint64, b []byte) error) error {
	for len(bz) > 0 {
		tag, n := proto.DecodeVarint(bz)
		if n == 0 {
			return errors.Wrap(errors.ErrInvalidModel, "bad tag")
		}
		bz = bz[n:]
		field := int(tag >> 3)
		if field <= 0 {
			return errors.Wrap(errors.ErrInvalidModel, "bad field number")
		}
		switch tag & 0x7 {
		case wireVarint:
			v, n := proto.DecodeVarint(bz)
			if n == 0 {
				return errors.Wrap(errors.ErrInvalidModel, "bad varint")
			}
			bz = bz[n:]
			if err := fn(field, v, nil); err != nil {
				return err
			}
		case wireBytes:
			l, n := proto.DecodeVarint(bz)
			if n == 0 || uint64(len(bz)-n) < l {
				return errors.Wrap(errors.ErrInvalidModel, "bad length")
			}
			bz = bz[n:]
			b := append([]byte(nil), bz[:l]...)
			bz = bz[l:]
			if err := fn(field, 0, b); err != nil {
				return err
			}
		default:
			return errors.Wrapf(errors.ErrInvalidModel, "unsupported wire type %d", tag&0x7)
		}
	}
	return nil
}
