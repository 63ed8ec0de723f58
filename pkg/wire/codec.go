package wire

// BSONCodec is the byte-level BSON encoder/decoder the core assumes is
// available; it deliberately does not implement BSON encoding itself.
// Callers inject a concrete implementation.
type BSONCodec interface {
	// EncodeDocument marshals doc to raw BSON bytes.
	EncodeDocument(doc interface{}) ([]byte, error)
	// DecodeDocument unmarshals raw BSON bytes into a generic document.
	DecodeDocument(data []byte) (map[string]interface{}, error)
	// DocumentSize reports the encoded size without allocating the full
	// encoding twice when the caller already has it (returns len(data)).
	DocumentSize(data []byte) int32
}

// rawBSONCodec is a minimal stand-in used by this module's tests and by
// cmd/wireprobe; callers that need real BSON decoding inject their own
// driver's codec.
type rawBSONCodec struct{}

// NewRawBSONCodec is a trivial codec over pre-encoded []byte documents,
// useful for tests and for callers that already hold encoded BSON and just
// need the wire framing around it.
func NewRawBSONCodec() BSONCodec { return rawBSONCodec{} }

func (rawBSONCodec) EncodeDocument(doc interface{}) ([]byte, error) {
	if b, ok := doc.([]byte); ok {
		return b, nil
	}
	return nil, errNotRawBytes
}

func (rawBSONCodec) DecodeDocument(data []byte) (map[string]interface{}, error) {
	return map[string]interface{}{"_raw": data}, nil
}

func (rawBSONCodec) DocumentSize(data []byte) int32 { return int32(len(data)) }

var errNotRawBytes = rawCodecErr("rawBSONCodec: document is not a []byte")

type rawCodecErr string

func (e rawCodecErr) Error() string { return string(e) }
