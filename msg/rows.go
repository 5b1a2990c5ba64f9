package msg

import "gopkg.in/vmihailenco/msgpack.v2"

// Rows carries a contiguous block of augmented-matrix rows starting at the
// global row Start. It is used both to distribute rows to a worker and to
// gather them back. Tolerance is only meaningful on distribution.
type Rows struct {
	N         int
	Start     int
	Tolerance float64
	Data      [][]float64
}

var (
	_ msgpack.CustomEncoder = &Rows{}
	_ msgpack.CustomDecoder = &Rows{}
)

func (r *Rows) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(r.N, r.Start, r.Tolerance, r.Data)
}

func (r *Rows) DecodeMsgpack(dec *msgpack.Decoder) error {
	return dec.Decode(&r.N, &r.Start, &r.Tolerance, &r.Data)
}
