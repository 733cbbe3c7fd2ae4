package jexchange

import (
	"sync/atomic"
)

//请求id发生器，进程内单调递增，保证一个传输会话里不重复
var requestId uint64

//Request 交换层的请求消息
type Request struct {
	Id      uint64      //请求id，帧头携带，响应按它对上号
	Version string      //协议版本
	TwoWay  bool        //是否需要响应
	Event   bool        //是否是事件帧，事件且Data为nil的是心跳
	Broken  bool        //解码失败时置位，Data里放解码错误
	Data    interface{} //方法调用的载荷
}

/*
   @brief:构造一个请求，自动分配id
*/
func NewRequest() *Request {
	return &Request{
		Id:      atomic.AddUint64(&requestId, 1),
		Version: ProtocolVersion,
	}
}

/*
   @brief:构造一个心跳请求，事件帧，没有载荷
*/
func NewHeartbeatRequest() *Request {
	req := NewRequest()
	req.TwoWay = true
	req.Event = true
	return req
}

/*
   @brief:是否是心跳帧
*/
func (req *Request) IsHeartbeat() bool {
	return req.Event && req.Data == nil
}
