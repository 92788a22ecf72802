package http

import (
	"io"
)

// Encoder writes HTTP messages to an output stream.
type Encoder struct {
	w   io.Writer
	buf []byte
}

// NewEncoder returns a new encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes the HTTP wire-format encoding of v to the stream.
// v must be a *Request or *Response.
func (enc *Encoder) Encode(v interface{}) error {
	data, err := Marshal(v)
	if err != nil {
		return err
	}
	_, err = enc.w.Write(data)
	return err
}

// EncodeResponse writes resp in a single Write call. The encoder reuses its
// buffer between calls.
func (enc *Encoder) EncodeResponse(resp *Response) error {
	buf, err := AppendResponse(enc.buf[:0], resp)
	if err != nil {
		return err
	}
	enc.buf = buf
	_, err = enc.w.Write(buf)
	return err
}
