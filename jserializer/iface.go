package jserializer

import (
	"io"

	"JDubboFrame/jurl"
)

//序列化方式的ContentTypeId，写进帧头flag字节的低5位
const (
	SerializationHessian2 byte = 2 //hessian2的线上id，本模块不提供实现，仅保留
	SerializationJson     byte = 6
	SerializationGob      byte = 7
	SerializationPb       byte = 21
)

//缺省序列化方式，URL中没有serialization参数时使用
const DefaultSerialization = "gob"

//ISerializer 消息体的序列化扩展点
type ISerializer interface {
	//GetContentTypeId 返回写进帧头的序列化id
	GetContentTypeId() byte
	//Serialize 在w上打开一个对象输出流
	Serialize(url *jurl.URL, w io.Writer) (IObjectOutput, error)
	//Deserialize 在r上打开一个对象输入流
	Deserialize(url *jurl.URL, r io.Reader) (IObjectInput, error)
}

//IObjectOutput 对象输出流，一个流上可以依次写多个对象
type IObjectOutput interface {
	WriteObject(v interface{}) error
	WriteUTF(s string) error
	FlushBuffer() error
}

//IObjectInput 对象输入流
type IObjectInput interface {
	//ReadObject 把下一个对象解码到v指向的值里
	ReadObject(v interface{}) error
	ReadUTF() (string, error)
}
