package msg

import "gopkg.in/vmihailenco/msgpack.v2"

// Pivot is one broadcast. Root is the rank that produced Data and Seq
// counts broadcasts so receivers can detect reordering.
type Pivot struct {
	Root int
	Seq  uint64
	Data []float64
}

var (
	_ msgpack.CustomEncoder = &Pivot{}
	_ msgpack.CustomDecoder = &Pivot{}
)

func (p *Pivot) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(p.Root, p.Seq, p.Data)
}

func (p *Pivot) DecodeMsgpack(dec *msgpack.Decoder) error {
	return dec.Decode(&p.Root, &p.Seq, &p.Data)
}
