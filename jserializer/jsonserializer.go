package jserializer

import (
	"io"

	"JDubboFrame/jurl"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

//JsonSerializer json编码器，跨语言调试时好用
type JsonSerializer struct {
}

func (s *JsonSerializer) GetContentTypeId() byte {
	return SerializationJson
}

func (s *JsonSerializer) Serialize(url *jurl.URL, w io.Writer) (IObjectOutput, error) {
	return &jsonObjectOutput{enc: json.NewEncoder(w)}, nil
}

func (s *JsonSerializer) Deserialize(url *jurl.URL, r io.Reader) (IObjectInput, error) {
	return &jsonObjectInput{dec: json.NewDecoder(r)}, nil
}

type jsonObjectOutput struct {
	enc *jsoniter.Encoder
}

func (out *jsonObjectOutput) WriteObject(v interface{}) error {
	//Encode会在对象后面补一个换行，正好当作流上的分隔
	return out.enc.Encode(v)
}

func (out *jsonObjectOutput) WriteUTF(s string) error {
	return out.enc.Encode(s)
}

func (out *jsonObjectOutput) FlushBuffer() error {
	return nil
}

type jsonObjectInput struct {
	dec *jsoniter.Decoder
}

func (in *jsonObjectInput) ReadObject(v interface{}) error {
	return in.dec.Decode(v)
}

func (in *jsonObjectInput) ReadUTF() (string, error) {
	var s string
	err := in.dec.Decode(&s)
	return s, err
}
