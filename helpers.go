package loom

import (
	"reflect"

	"github.com/iov-one/loom/errors"
)

// assignMsg copies the message value carried by a transaction into dst,
// which must be a pointer to the same message type.
func assignMsg(src, dst Msg) error {
	dv := reflect.ValueOf(dst)
	if dv.Kind() != reflect.Ptr || dv.IsNil() {
		return errors.Wrap(errors.ErrHuman, "destination must be a non nil pointer")
	}
	sv := reflect.ValueOf(src)
	if sv.Kind() == reflect.Ptr {
		if sv.IsNil() {
			return errors.Wrap(errors.ErrInvalidMsg, "nil message")
		}
		sv = sv.Elem()
	}
	if sv.Type() != dv.Elem().Type() {
		return errors.Wrapf(errors.ErrType, "want %T, got %T", dst, src)
	}
	dv.Elem().Set(sv)
	return nil
}
