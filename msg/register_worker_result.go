package msg

import "gopkg.in/vmihailenco/msgpack.v2"

// RegisterWorkerResult is sent by the coordinator right after a worker
// connects. Error is empty when the registration succeeded.
type RegisterWorkerResult struct {
	RunID string
	Size  int
	Error string
}

var (
	_ msgpack.CustomEncoder = &RegisterWorkerResult{}
	_ msgpack.CustomDecoder = &RegisterWorkerResult{}
)

func (r *RegisterWorkerResult) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(r.RunID, r.Size, r.Error)
}

func (r *RegisterWorkerResult) DecodeMsgpack(dec *msgpack.Decoder) error {
	return dec.Decode(&r.RunID, &r.Size, &r.Error)
}
