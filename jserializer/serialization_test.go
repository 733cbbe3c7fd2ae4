package jserializer

import (
	"bytes"
	"testing"

	"JDubboFrame/jext"
	"JDubboFrame/jurl"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string
	Count int
}

func testURL(t *testing.T, raw string) *jurl.URL {
	u, err := jurl.ParseURL(raw)
	require.NoError(t, err)
	return u
}

func roundTrip(t *testing.T, s ISerializer, url *jurl.URL) {
	var buf bytes.Buffer
	out, err := s.Serialize(url, &buf)
	require.NoError(t, err)
	require.NoError(t, out.WriteObject(&payload{Name: "jdubbo", Count: 7}))
	require.NoError(t, out.WriteUTF("hello"))
	require.NoError(t, out.FlushBuffer())

	in, err := s.Deserialize(url, &buf)
	require.NoError(t, err)
	var got payload
	require.NoError(t, in.ReadObject(&got))
	assert.Equal(t, payload{Name: "jdubbo", Count: 7}, got)
	msg, err := in.ReadUTF()
	require.NoError(t, err)
	assert.Equal(t, "hello", msg)
}

func TestGobRoundTrip(t *testing.T) {
	url := testURL(t, "dubbo://127.0.0.1:20880/demo")
	roundTrip(t, &GobSerializer{}, url)
}

func TestJsonRoundTrip(t *testing.T) {
	url := testURL(t, "dubbo://127.0.0.1:20880/demo")
	roundTrip(t, &JsonSerializer{}, url)
}

func TestGetSerialization(t *testing.T) {
	url := testURL(t, "dubbo://127.0.0.1:20880/demo?serialization=json")
	s, err := GetSerialization(url)
	require.NoError(t, err)
	assert.Equal(t, SerializationJson, s.GetContentTypeId())

	//没有serialization参数时用缺省实现
	url = testURL(t, "dubbo://127.0.0.1:20880/demo")
	s, err = GetSerialization(url)
	require.NoError(t, err)
	assert.Equal(t, SerializationGob, s.GetContentTypeId())

	//未知的实现名报错
	url = testURL(t, "dubbo://127.0.0.1:20880/demo?serialization=hessian9")
	_, err = GetSerialization(url)
	assert.Error(t, err)
}

func TestGetSerializationById(t *testing.T) {
	s, err := GetSerializationById(SerializationJson)
	require.NoError(t, err)
	assert.Equal(t, SerializationJson, s.GetContentTypeId())

	//命中过的id走缓存，拿到的还是同一个单例
	again, err := GetSerializationById(SerializationJson)
	require.NoError(t, err)
	assert.Same(t, s, again)

	_, err = GetSerializationById(31)
	assert.Error(t, err)
}

func TestAdaptiveSerializer(t *testing.T) {
	loader := jext.GetExtensionLoader(jext.TypeOf((*ISerializer)(nil)))
	adaptive, err := loader.GetAdaptiveExtension()
	require.NoError(t, err)
	s := adaptive.(ISerializer)

	//按URL参数分发
	url := testURL(t, "dubbo://127.0.0.1:20880/demo?serialization=json")
	var buf bytes.Buffer
	out, err := s.Serialize(url, &buf)
	require.NoError(t, err)
	require.NoError(t, out.WriteObject("x"))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte(`"x"`)))

	//ContentTypeId不是自适应方法
	assert.Panics(t, func() { s.GetContentTypeId() })
}

func TestPbNames(t *testing.T) {
	loader := jext.GetExtensionLoader(jext.TypeOf((*ISerializer)(nil)))
	//pb和protobuf两个名字指向同一个实现单例
	a, err := loader.GetExtension("pb")
	require.NoError(t, err)
	b, err := loader.GetExtension("protobuf")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, SerializationPb, a.(ISerializer).GetContentTypeId())
}
