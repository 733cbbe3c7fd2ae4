package jexchange

import (
	"io"
	"reflect"
	"testing"

	"JDubboFrame/jext"
	"JDubboFrame/jserializer"
	"JDubboFrame/jurl"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//帧头测试用的序列化器，id固定是2，消息体固定写7个字节
type FixedSerializer struct {
}

func (s *FixedSerializer) GetContentTypeId() byte {
	return 2
}

func (s *FixedSerializer) Serialize(url *jurl.URL, w io.Writer) (jserializer.IObjectOutput, error) {
	return &fixedOutput{w: w}, nil
}

func (s *FixedSerializer) Deserialize(url *jurl.URL, r io.Reader) (jserializer.IObjectInput, error) {
	return &fixedInput{r: r}, nil
}

type fixedOutput struct {
	w io.Writer
}

func (out *fixedOutput) WriteObject(v interface{}) error {
	_, err := out.w.Write([]byte("payload"))
	return err
}

func (out *fixedOutput) WriteUTF(s string) error {
	return out.WriteObject(s)
}

func (out *fixedOutput) FlushBuffer() error {
	return nil
}

type fixedInput struct {
	r io.Reader
}

func (in *fixedInput) ReadObject(v interface{}) error {
	_, err := io.ReadAll(in.r)
	return err
}

func (in *fixedInput) ReadUTF() (string, error) {
	data, err := io.ReadAll(in.r)
	return string(data), err
}

//编码响应体时报错的序列化器，坏响应替换用
type BrokenSerializer struct {
}

func (s *BrokenSerializer) GetContentTypeId() byte {
	return 29
}

func (s *BrokenSerializer) Serialize(url *jurl.URL, w io.Writer) (jserializer.IObjectOutput, error) {
	return &brokenOutput{w: w}, nil
}

func (s *BrokenSerializer) Deserialize(url *jurl.URL, r io.Reader) (jserializer.IObjectInput, error) {
	return &fixedInput{r: r}, nil
}

type brokenOutput struct {
	w io.Writer
}

func (out *brokenOutput) WriteObject(v interface{}) error {
	return errors.New("serialize blew up")
}

func (out *brokenOutput) WriteUTF(s string) error {
	_, err := out.w.Write([]byte(s))
	return err
}

func (out *brokenOutput) FlushBuffer() error {
	return nil
}

var serializerType = jext.TypeOf((*jserializer.ISerializer)(nil))

func init() {
	loader := jext.GetExtensionLoader(serializerType)
	if err := loader.AddExtension("fixed", jext.Class{
		Type: reflect.TypeOf(FixedSerializer{}),
		New:  func() interface{} { return &FixedSerializer{} },
	}); err != nil {
		panic(err)
	}
	if err := loader.AddExtension("brokenout", jext.Class{
		Type: reflect.TypeOf(BrokenSerializer{}),
		New:  func() interface{} { return &BrokenSerializer{} },
	}); err != nil {
		panic(err)
	}
}

func mustURL(t *testing.T, raw string) *jurl.URL {
	u, err := jurl.ParseURL(raw)
	require.NoError(t, err)
	return u
}

func TestEncodeRequestHeaderLayout(t *testing.T) {
	url := mustURL(t, "dubbo://127.0.0.1:20880/demo?serialization=fixed")
	codec := NewExchangeCodec(nil)

	req := &Request{Id: 42, Version: ProtocolVersion, TwoWay: true}
	req.Data = &Invocation{ServiceMethod: "Echo.Say"}

	buf := NewBuffer(64)
	defer buf.Release()
	require.NoError(t, codec.Encode(url, buf, req))

	want := []byte{
		0xda, 0xbb, //魔数
		0xc2,       //request|twoway|序列化id2
		0x00,       //status
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x2a, //id=42
		0x00, 0x00, 0x00, 0x07, //体长度7
	}
	assert.Equal(t, HeaderLength+7, buf.ReadableBytes())
	assert.Equal(t, want, buf.Bytes()[:HeaderLength])
	assert.Equal(t, []byte("payload"), buf.Bytes()[HeaderLength:])
}

func TestRoundTripRequest(t *testing.T) {
	url := mustURL(t, "dubbo://127.0.0.1:20880/demo?serialization=gob")
	codec := NewExchangeCodec(nil)

	req := NewRequest()
	req.TwoWay = true
	req.Data = &Invocation{ServiceMethod: "Echo.Say", Input: []byte{1, 2, 3}}

	buf := NewBuffer(64)
	defer buf.Release()
	require.NoError(t, codec.Encode(url, buf, req))

	msg, err := codec.Decode(url, buf)
	require.NoError(t, err)
	got, ok := msg.(*Request)
	require.True(t, ok)

	assert.Equal(t, req.Id, got.Id)
	assert.True(t, got.TwoWay)
	assert.False(t, got.Event)
	assert.False(t, got.Broken)
	inv, ok := got.Data.(*Invocation)
	require.True(t, ok)
	assert.Equal(t, "Echo.Say", inv.ServiceMethod)
	assert.Equal(t, []byte{1, 2, 3}, inv.Input)
	assert.Equal(t, 0, buf.ReadableBytes())
}

func TestRoundTripResponse(t *testing.T) {
	url := mustURL(t, "dubbo://127.0.0.1:20880/demo?serialization=gob")

	//响应按发出去的请求的载荷签名定向解码
	pending := NewPendingStore(0)
	codec := NewExchangeCodec(pending)

	req := NewRequest()
	req.TwoWay = true
	call := NewCall()
	call.Seq = req.Id
	call.Request = req
	var reply string
	call.Reply = &reply
	pending.Register(call)
	defer func() {
		pending.Take(call.Seq)
		ReleaseCall(call)
	}()

	res := NewResponse(req.Id)
	res.Result = "pong"

	buf := NewBuffer(64)
	defer buf.Release()
	require.NoError(t, codec.Encode(url, buf, res))

	msg, err := codec.Decode(url, buf)
	require.NoError(t, err)
	got, ok := msg.(*Response)
	require.True(t, ok)

	assert.Equal(t, req.Id, got.Id)
	assert.Equal(t, StatusOK, got.Status)
	assert.Equal(t, "pong", reply)
}

func TestRoundTripErrorResponse(t *testing.T) {
	url := mustURL(t, "dubbo://127.0.0.1:20880/demo?serialization=gob")
	codec := NewExchangeCodec(nil)

	res := NewResponse(9)
	res.Status = StatusServiceError
	res.ErrorMsg = "boom"

	buf := NewBuffer(64)
	defer buf.Release()
	require.NoError(t, codec.Encode(url, buf, res))

	msg, err := codec.Decode(url, buf)
	require.NoError(t, err)
	got := msg.(*Response)
	assert.Equal(t, uint64(9), got.Id)
	assert.Equal(t, StatusServiceError, got.Status)
	assert.Equal(t, "boom", got.ErrorMsg)
	assert.Nil(t, got.Result)
}

func TestRoundTripHeartbeat(t *testing.T) {
	url := mustURL(t, "dubbo://127.0.0.1:20880/demo?serialization=gob")
	codec := NewExchangeCodec(nil)

	req := NewHeartbeatRequest()
	buf := NewBuffer(64)
	defer buf.Release()
	require.NoError(t, codec.Encode(url, buf, req))

	//心跳没有消息体
	assert.Equal(t, HeaderLength, buf.ReadableBytes())

	msg, err := codec.Decode(url, buf)
	require.NoError(t, err)
	got := msg.(*Request)
	assert.True(t, got.IsHeartbeat())
	assert.Equal(t, req.Id, got.Id)

	res := NewHeartbeatResponse(req.Id)
	require.NoError(t, codec.Encode(url, buf, res))
	msg, err = codec.Decode(url, buf)
	require.NoError(t, err)
	gotRes := msg.(*Response)
	assert.True(t, gotRes.IsHeartbeat())
	assert.Equal(t, StatusOK, gotRes.Status)
}

func TestPartialInputSafety(t *testing.T) {
	url := mustURL(t, "dubbo://127.0.0.1:20880/demo?serialization=gob")
	codec := NewExchangeCodec(nil)

	req := NewRequest()
	req.TwoWay = true
	req.Data = &Invocation{ServiceMethod: "Echo.Say", Input: []byte("abcdefg")}

	full := NewBuffer(64)
	defer full.Release()
	require.NoError(t, codec.Encode(url, full, req))
	frame := append([]byte{}, full.Bytes()...)

	for n := 0; n < len(frame); n++ {
		buf := NewBuffer(64)
		buf.WriteBytes(frame[:n])
		saved := buf.ReaderIndex()
		msg, err := codec.Decode(url, buf)
		require.NoError(t, err, "prefix %d", n)
		assert.Equal(t, NeedMoreInput, msg, "prefix %d", n)
		assert.Equal(t, saved, buf.ReaderIndex(), "prefix %d must not move reader index", n)
		buf.Release()
	}
}

func TestMagicResync(t *testing.T) {
	url := mustURL(t, "dubbo://127.0.0.1:20880/demo?serialization=gob")
	codec := NewExchangeCodec(nil)

	full := NewBuffer(64)
	defer full.Release()
	req := NewRequest()
	req.Data = &Invocation{ServiceMethod: "Echo.Say"}
	require.NoError(t, codec.Encode(url, full, req))

	buf := NewBuffer(64)
	defer buf.Release()
	buf.WriteBytes([]byte{0xaa, 0x55})
	buf.WriteBytes(full.Bytes())

	//第一次解码把魔数之前的两个字节交给telnet兜底
	msg, err := codec.Decode(url, buf)
	require.NoError(t, err)
	garbage, ok := msg.(string)
	require.True(t, ok)
	assert.Equal(t, string([]byte{0xaa, 0x55}), garbage)

	//读下标停在魔数上，下一轮解出完整的帧
	msg, err = codec.Decode(url, buf)
	require.NoError(t, err)
	got, ok := msg.(*Request)
	require.True(t, ok)
	assert.Equal(t, req.Id, got.Id)
}

func TestTelnetFallback(t *testing.T) {
	url := mustURL(t, "dubbo://127.0.0.1:20880/demo")
	codec := NewExchangeCodec(nil)

	buf := NewBuffer(64)
	defer buf.Release()
	buf.WriteBytes([]byte("status\r\n"))

	msg, err := codec.Decode(url, buf)
	require.NoError(t, err)
	assert.Equal(t, "status", msg)

	//没有换行的文本等更多输入
	buf.WriteBytes([]byte("sta"))
	msg, err = codec.Decode(url, buf)
	require.NoError(t, err)
	assert.Equal(t, NeedMoreInput, msg)
}

func TestPayloadLimit(t *testing.T) {
	url := mustURL(t, "dubbo://127.0.0.1:20880/demo?serialization=gob&payload=8")
	codec := NewExchangeCodec(nil)

	req := NewRequest()
	req.TwoWay = true
	req.Data = &Invocation{ServiceMethod: "Echo.Say", Input: make([]byte, 64)}

	buf := NewBuffer(256)
	defer buf.Release()
	err := codec.Encode(url, buf, req)
	require.Error(t, err)
	assert.Equal(t, ErrExceedPayloadLimit, errors.Cause(err))
	//超限的帧不落进缓冲区
	assert.Equal(t, 0, buf.ReadableBytes())
}

func TestBadResponseReplacement(t *testing.T) {
	url := mustURL(t, "dubbo://127.0.0.1:20880/demo?serialization=brokenout")
	codec := NewExchangeCodec(nil)

	res := NewResponse(77)
	res.Result = "whatever"

	buf := NewBuffer(256)
	defer buf.Release()
	err := codec.Encode(url, buf, res)
	require.Error(t, err)

	//缓冲区里留下的是坏响应替换帧，同一个id，体是UTF错误信息
	msg, derr := codec.Decode(url, buf)
	require.NoError(t, derr)
	bad, ok := msg.(*Response)
	require.True(t, ok)
	assert.Equal(t, uint64(77), bad.Id)
	assert.Equal(t, StatusBadResponse, bad.Status)
	assert.Contains(t, bad.ErrorMsg, "serialize blew up")
	assert.Equal(t, 0, buf.ReadableBytes())
}

func TestDecodeBrokenRequestStillDelivered(t *testing.T) {
	url := mustURL(t, "dubbo://127.0.0.1:20880/demo?serialization=gob")
	codec := NewExchangeCodec(nil)

	//手工拼一帧体是垃圾的请求
	buf := NewBuffer(64)
	defer buf.Release()
	header := []byte{
		0xda, 0xbb,
		FlagRequest | FlagTwoWay | jserializer.SerializationGob,
		0x00,
		0, 0, 0, 0, 0, 0, 0, 5,
		0, 0, 0, 3,
	}
	buf.WriteBytes(header)
	buf.WriteBytes([]byte{0xff, 0xfe, 0xfd})

	msg, err := codec.Decode(url, buf)
	require.NoError(t, err)
	got := msg.(*Request)
	assert.True(t, got.Broken)
	assert.Equal(t, uint64(5), got.Id)
	_, isErr := got.Data.(error)
	assert.True(t, isErr)
}
