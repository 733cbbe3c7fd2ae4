package jserializer

import (
	"encoding/binary"
	"io"

	"JDubboFrame/jurl"

	"github.com/gogo/protobuf/proto"
	"github.com/pkg/errors"
)

//PbSerializer protobuf编码器，对象必须是proto.Message
//流上的格式是uvarint长度前缀加上消息体，字符串也按这个格式写
type PbSerializer struct {
}

func (s *PbSerializer) GetContentTypeId() byte {
	return SerializationPb
}

func (s *PbSerializer) Serialize(url *jurl.URL, w io.Writer) (IObjectOutput, error) {
	return &pbObjectOutput{w: w}, nil
}

func (s *PbSerializer) Deserialize(url *jurl.URL, r io.Reader) (IObjectInput, error) {
	return &pbObjectInput{r: newByteReader(r)}, nil
}

type pbObjectOutput struct {
	w io.Writer
}

func (out *pbObjectOutput) writeFrame(data []byte) error {
	var head [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(head[:], uint64(len(data)))
	if _, err := out.w.Write(head[:n]); err != nil {
		return err
	}
	_, err := out.w.Write(data)
	return err
}

func (out *pbObjectOutput) WriteObject(v interface{}) error {
	msg, ok := v.(proto.Message)
	if !ok {
		return errors.Errorf("pb serializer only accepts proto.Message, got %T", v)
	}
	data, err := proto.Marshal(msg)
	if err != nil {
		return err
	}
	return out.writeFrame(data)
}

func (out *pbObjectOutput) WriteUTF(s string) error {
	return out.writeFrame([]byte(s))
}

func (out *pbObjectOutput) FlushBuffer() error {
	return nil
}

//byteReader 给binary.ReadUvarint用的单字节读取器
type byteReader struct {
	r io.Reader
	b [1]byte
}

func newByteReader(r io.Reader) *byteReader {
	return &byteReader{r: r}
}

func (br *byteReader) Read(p []byte) (int, error) {
	return br.r.Read(p)
}

func (br *byteReader) ReadByte() (byte, error) {
	if _, err := io.ReadFull(br.r, br.b[:]); err != nil {
		return 0, err
	}
	return br.b[0], nil
}

type pbObjectInput struct {
	r *byteReader
}

func (in *pbObjectInput) readFrame() ([]byte, error) {
	n, err := binary.ReadUvarint(in.r)
	if err != nil {
		return nil, err
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(in.r, data); err != nil {
		return nil, err
	}
	return data, nil
}

func (in *pbObjectInput) ReadObject(v interface{}) error {
	msg, ok := v.(proto.Message)
	if !ok {
		return errors.Errorf("pb serializer only accepts proto.Message, got %T", v)
	}
	data, err := in.readFrame()
	if err != nil {
		return err
	}
	return proto.Unmarshal(data, msg)
}

func (in *pbObjectInput) ReadUTF() (string, error) {
	data, err := in.readFrame()
	if err != nil {
		return "", err
	}
	return string(data), nil
}
