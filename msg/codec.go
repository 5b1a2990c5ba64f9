package msg

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/vmihailenco/msgpack.v2"
)

// Encode returns one frame: the message type followed by the payload.
func Encode(t MessageType, v interface{}) ([]byte, error) {
	b, err := msgpack.Marshal(t, v)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s", t)
	}
	return b, nil
}

// Decode reads one frame from r and returns its type and a pointer to the
// decoded payload (*RegisterWorkerResult, *Rows or *Pivot).
func Decode(r io.Reader) (MessageType, interface{}, error) {
	dec := msgpack.NewDecoder(r)
	var t MessageType
	if err := dec.Decode(&t); err != nil {
		return UndefinedMsg, nil, errors.Wrap(err, "decode message type")
	}
	var v interface{}
	switch t {
	case RegisterWorkerResultMsg:
		v = &RegisterWorkerResult{}
	case RowsMsg:
		v = &Rows{}
	case PivotMsg:
		v = &Pivot{}
	default:
		return t, nil, errors.Errorf("unexpected message type %d", uint32(t))
	}
	if err := dec.Decode(v); err != nil {
		return t, nil, errors.Wrapf(err, "decode %s", t)
	}
	return t, v, nil
}
