package jexchange

import (
	"bytes"
	"encoding/binary"

	"JDubboFrame/jlog"
	"JDubboFrame/jserializer"
	"JDubboFrame/jurl"

	"github.com/pkg/errors"
)

//帧格式：16字节帧头+消息体，帧头大端
//|--2字节魔数--|--1字节flag--|--1字节status--|--8字节消息id--|--4字节体长度--|
//flag: bit7请求 bit6需要响应 bit5事件 低5位序列化id
const (
	HeaderLength = 16
	MagicHigh    = byte(0xda)
	MagicLow     = byte(0xbb)

	FlagRequest       = byte(0x80)
	FlagTwoWay        = byte(0x40)
	FlagEvent         = byte(0x20)
	SerializationMask = byte(0x1f)

	//体长度的上限，URL的payload参数可以改
	DefaultPayload = 8 * 1024 * 1024

	ProtocolVersion = "2.0.0"

	//坏响应替换帧里错误信息的最大长度
	maxBadResponseMsgLen = 256
)

//Magic 帧头魔数0xdabb
const Magic = uint16(0xdabb)

var ErrExceedPayloadLimit = errors.New("exceed payload limit")

//needMore NeedMoreInput的底层类型
type needMore struct{}

//NeedMoreInput 半包哨兵，不是错误，拿到它的调用方等更多字节到了再来
var NeedMoreInput interface{} = needMore{}

//ICodec 编解码器，在缓冲区上工作，自己不做IO
type ICodec interface {
	Encode(url *jurl.URL, buffer *Buffer, msg interface{}) error
	Decode(url *jurl.URL, buffer *Buffer) (interface{}, error)
}

//ExchangeCodec 交换层编解码器，魔数对不上的字节交给内嵌的telnet兜底
type ExchangeCodec struct {
	TelnetCodec
	pending *PendingStore //解码响应时按请求签名定向解码，可以为nil
}

/*
    @brief:构造交换层编解码器
	@param [in] pending:关联的未完成调用表，可以为nil
*/
func NewExchangeCodec(pending *PendingStore) *ExchangeCodec {
	return &ExchangeCodec{pending: pending}
}

/*
    @brief:编码一条消息进缓冲区，Request和Response走帧格式，其他交给telnet
	@param [in] url:本连接的URL，决定序列化方式和payload上限
	@param [in] buffer:目标缓冲区
	@param [in] msg:消息
*/
func (c *ExchangeCodec) Encode(url *jurl.URL, buffer *Buffer, msg interface{}) error {
	switch m := msg.(type) {
	case *Request:
		return c.encodeRequest(url, buffer, m)
	case *Response:
		return c.encodeResponse(url, buffer, m)
	default:
		return c.TelnetCodec.Encode(url, buffer, msg)
	}
}

func (c *ExchangeCodec) encodeRequest(url *jurl.URL, buffer *Buffer, req *Request) error {
	s, err := jserializer.GetSerialization(url)
	if err != nil {
		return err
	}
	var header [HeaderLength]byte
	header[0] = MagicHigh
	header[1] = MagicLow
	header[2] = FlagRequest | s.GetContentTypeId()
	if req.TwoWay {
		header[2] |= FlagTwoWay
	}
	if req.Event {
		header[2] |= FlagEvent
	}
	binary.BigEndian.PutUint64(header[4:12], req.Id)

	savedWrite := buffer.WriterIndex()
	buffer.SetWriterIndex(savedWrite + HeaderLength)
	bodyLen, err := c.encodeBody(url, buffer, s, req.Event, req.Data)
	if err != nil {
		buffer.SetWriterIndex(savedWrite)
		return err
	}
	if err := checkPayload(url, bodyLen); err != nil {
		buffer.SetWriterIndex(savedWrite)
		return err
	}
	binary.BigEndian.PutUint32(header[12:16], uint32(bodyLen))
	buffer.SetBytes(savedWrite, header[:])
	return nil
}

func (c *ExchangeCodec) encodeResponse(url *jurl.URL, buffer *Buffer, res *Response) error {
	savedWrite := buffer.WriterIndex()
	err := c.doEncodeResponse(url, buffer, res, savedWrite)
	if err == nil {
		return nil
	}
	buffer.SetWriterIndex(savedWrite)
	//编码失败时换一帧坏响应发回去，不然对端只能干等超时
	if !res.Event && res.Status != StatusBadResponse {
		bad := NewResponse(res.Id)
		bad.Version = res.Version
		bad.Status = StatusBadResponse
		bad.ErrorMsg = truncate("Failed to encode response: "+err.Error(), maxBadResponseMsgLen)
		if rerr := c.doEncodeResponse(url, buffer, bad, savedWrite); rerr != nil {
			buffer.SetWriterIndex(savedWrite)
			jlog.StdLogger.Errorf("fail to encode bad_response of request %d: %v", res.Id, rerr)
		}
	}
	return err
}

func (c *ExchangeCodec) doEncodeResponse(url *jurl.URL, buffer *Buffer, res *Response, savedWrite int) error {
	s, err := jserializer.GetSerialization(url)
	if err != nil {
		return err
	}
	var header [HeaderLength]byte
	header[0] = MagicHigh
	header[1] = MagicLow
	header[2] = s.GetContentTypeId()
	if res.Event {
		header[2] |= FlagEvent
	}
	header[3] = res.Status
	binary.BigEndian.PutUint64(header[4:12], res.Id)

	buffer.SetWriterIndex(savedWrite + HeaderLength)
	var bodyLen int
	if res.Status == StatusOK {
		bodyLen, err = c.encodeBody(url, buffer, s, res.Event, res.Result)
	} else {
		bodyLen, err = c.encodeErrorBody(url, buffer, s, res.ErrorMsg)
	}
	if err != nil {
		buffer.SetWriterIndex(savedWrite)
		return err
	}
	if err := checkPayload(url, bodyLen); err != nil {
		buffer.SetWriterIndex(savedWrite)
		return err
	}
	binary.BigEndian.PutUint32(header[12:16], uint32(bodyLen))
	buffer.SetBytes(savedWrite, header[:])
	return nil
}

//写消息体，事件帧载荷为nil时体长度是0，其余写对象
func (c *ExchangeCodec) encodeBody(url *jurl.URL, buffer *Buffer, s jserializer.ISerializer,
	event bool, data interface{}) (int, error) {
	start := buffer.WriterIndex()
	if event && data == nil {
		return 0, nil
	}
	out, err := s.Serialize(url, buffer)
	if err != nil {
		return 0, err
	}
	if err := out.WriteObject(data); err != nil {
		return 0, err
	}
	if err := out.FlushBuffer(); err != nil {
		return 0, err
	}
	return buffer.WriterIndex() - start, nil
}

//错误响应的体是一个UTF错误串
func (c *ExchangeCodec) encodeErrorBody(url *jurl.URL, buffer *Buffer, s jserializer.ISerializer,
	errorMsg string) (int, error) {
	start := buffer.WriterIndex()
	out, err := s.Serialize(url, buffer)
	if err != nil {
		return 0, err
	}
	if err := out.WriteUTF(errorMsg); err != nil {
		return 0, err
	}
	if err := out.FlushBuffer(); err != nil {
		return 0, err
	}
	return buffer.WriterIndex() - start, nil
}

/*
    @brief:从缓冲区解码一条消息
	半包返回NeedMoreInput并保持读下标不动；魔数对不上时向后找魔数，
	魔数之前的字节交给telnet兜底，读下标停在魔数上，下一轮从那里继续
	@param [in] url:本连接的URL
	@param [in] buffer:字节来源
	@return:Request、Response、telnet命令串或者NeedMoreInput
*/
func (c *ExchangeCodec) Decode(url *jurl.URL, buffer *Buffer) (interface{}, error) {
	saved := buffer.ReaderIndex()
	readable := buffer.ReadableBytes()
	n := HeaderLength
	if readable < n {
		n = readable
	}
	header := buffer.ReadBytes(n)
	msg, err := c.decode(url, buffer, readable, header, saved)
	if err != nil || msg == NeedMoreInput {
		buffer.SetReaderIndex(saved)
	}
	return msg, err
}

func (c *ExchangeCodec) decode(url *jurl.URL, buffer *Buffer, readable int, header []byte, saved int) (interface{}, error) {
	//检查魔数
	if (readable > 0 && header[0] != MagicHigh) || (readable > 1 && header[1] != MagicLow) {
		if len(header) < readable {
			rest := buffer.ReadBytes(readable - len(header))
			full := make([]byte, 0, readable)
			full = append(full, header...)
			header = append(full, rest...)
		}
		for i := 1; i+1 < len(header); i++ {
			if header[i] == MagicHigh && header[i+1] == MagicLow {
				//魔数之前的字节不是本协议的，交给兜底codec，读下标停在魔数上
				buffer.SetReaderIndex(saved + i)
				return c.TelnetCodec.DecodeData(url, header[:i]), nil
			}
		}
		//整个缓冲区里都没有魔数，全部交给telnet
		buffer.SetReaderIndex(saved)
		return c.TelnetCodec.Decode(url, buffer)
	}
	//半包
	if readable < HeaderLength {
		return NeedMoreInput, nil
	}
	bodyLen := int(binary.BigEndian.Uint32(header[12:16]))
	if err := checkPayload(url, bodyLen); err != nil {
		return nil, err
	}
	if readable < HeaderLength+bodyLen {
		return NeedMoreInput, nil
	}
	body := buffer.ReadBytes(bodyLen)
	return c.decodeBody(url, header, body)
}

func (c *ExchangeCodec) decodeBody(url *jurl.URL, header []byte, body []byte) (interface{}, error) {
	flag := header[2]
	proto := flag & SerializationMask
	id := binary.BigEndian.Uint64(header[4:12])

	s, err := jserializer.GetSerializationById(proto)
	if err != nil {
		return nil, err
	}

	if flag&FlagRequest == 0 {
		//解码响应
		res := &Response{Id: id}
		res.Event = flag&FlagEvent != 0
		res.Status = header[3]
		if res.Status != StatusOK {
			in, derr := c.openInput(url, s, body)
			if derr != nil {
				res.Status = StatusClientError
				res.ErrorMsg = derr.Error()
				return res, nil
			}
			msg, derr := in.ReadUTF()
			if derr != nil {
				res.Status = StatusClientError
				res.ErrorMsg = derr.Error()
				return res, nil
			}
			res.ErrorMsg = msg
			return res, nil
		}
		if res.Event && len(body) == 0 {
			//心跳响应，没有载荷
			return res, nil
		}
		reader := bytes.NewReader(body)
		in, derr := s.Deserialize(url, reader)
		if derr != nil {
			res.Status = StatusClientError
			res.ErrorMsg = derr.Error()
			return res, nil
		}
		if res.Event {
			var ev string
			derr = in.ReadObject(&ev)
			res.Result = ev
		} else if target := c.getReplyTarget(id); target != nil {
			//按发出去的请求的载荷签名定向解码
			derr = in.ReadObject(target)
			res.Result = target
		} else {
			//请求已经不在了(比如调用方超时放弃)，泛化解码
			var v interface{}
			derr = in.ReadObject(&v)
			res.Result = v
		}
		if derr != nil {
			res.Status = StatusClientError
			res.ErrorMsg = derr.Error()
			res.Result = nil
			return res, nil
		}
		skipUnused(reader.Len())
		return res, nil
	}

	//解码请求
	req := &Request{Id: id, Version: ProtocolVersion}
	req.TwoWay = flag&FlagTwoWay != 0
	req.Event = flag&FlagEvent != 0
	if req.Event && len(body) == 0 {
		//心跳请求
		return req, nil
	}
	reader := bytes.NewReader(body)
	in, derr := s.Deserialize(url, reader)
	if derr != nil {
		req.Broken = true
		req.Data = derr
		return req, nil
	}
	if req.Event {
		var ev string
		derr = in.ReadObject(&ev)
		req.Data = ev
	} else {
		inv := &Invocation{}
		derr = in.ReadObject(inv)
		req.Data = inv
	}
	if derr != nil {
		req.Broken = true
		req.Data = derr
		return req, nil
	}
	skipUnused(reader.Len())
	return req, nil
}

func (c *ExchangeCodec) openInput(url *jurl.URL, s jserializer.ISerializer, body []byte) (jserializer.IObjectInput, error) {
	return s.Deserialize(url, bytes.NewReader(body))
}

//响应解码时反查发出去的请求，拿到调用方给的结果接收对象
func (c *ExchangeCodec) getReplyTarget(id uint64) interface{} {
	if c.pending == nil {
		return nil
	}
	call := c.pending.GetCall(id)
	if call == nil {
		return nil
	}
	return call.Reply
}

//体里有没消费完的字节时记一笔日志，帧边界由体长度决定，不影响下一帧
func skipUnused(n int) {
	if n > 0 {
		jlog.StdLogger.Warnf("skip input stream %d bytes", n)
	}
}

/*
    @brief:检查体长度是否超过URL配置的payload上限
	@param [in] url:本连接的URL
	@param [in] size:体长度
*/
func checkPayload(url *jurl.URL, size int) error {
	payload := DefaultPayload
	if url != nil {
		payload = url.GetPositiveIntParameter("payload", DefaultPayload)
	}
	if payload > 0 && size > payload {
		return errors.Wrapf(ErrExceedPayloadLimit, "data length too large: %d, max payload: %d", size, payload)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
