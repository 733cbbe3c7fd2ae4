package jserializer

import (
	"encoding/gob"
	"io"

	"JDubboFrame/jurl"
)

//GobSerializer gob编码器，go进程之间通信的缺省选择
type GobSerializer struct {
}

func (s *GobSerializer) GetContentTypeId() byte {
	return SerializationGob
}

func (s *GobSerializer) Serialize(url *jurl.URL, w io.Writer) (IObjectOutput, error) {
	return &gobObjectOutput{enc: gob.NewEncoder(w)}, nil
}

func (s *GobSerializer) Deserialize(url *jurl.URL, r io.Reader) (IObjectInput, error) {
	return &gobObjectInput{dec: gob.NewDecoder(r)}, nil
}

type gobObjectOutput struct {
	enc *gob.Encoder
}

func (out *gobObjectOutput) WriteObject(v interface{}) error {
	return out.enc.Encode(v)
}

func (out *gobObjectOutput) WriteUTF(s string) error {
	return out.enc.Encode(s)
}

func (out *gobObjectOutput) FlushBuffer() error {
	return nil
}

type gobObjectInput struct {
	dec *gob.Decoder
}

func (in *gobObjectInput) ReadObject(v interface{}) error {
	return in.dec.Decode(v)
}

func (in *gobObjectInput) ReadUTF() (string, error) {
	var s string
	err := in.dec.Decode(&s)
	return s, err
}
