package jexchange

import (
	"fmt"
	"runtime"

	"JDubboFrame/jlog"
	"JDubboFrame/jnet"
	"JDubboFrame/jurl"
)

//IExchangeHandler 服务端的请求处理器，由使用方实现
type IExchangeHandler interface {
	Reply(url *jurl.URL, request *Request) (interface{}, error)
}

//ExchangeServer 交换层服务端，传输层由URL的transporter参数决定
type ExchangeServer struct {
	url     *jurl.URL
	handler HandlerFunc //过滤器链包好的处理函数
	codec   *ExchangeCodec
	server  jnet.IServer
}

/*
    @brief:构造交换层服务端，provider组的过滤器在这里装配
	@param [in] url:本端URL
	@param [in] handler:请求处理器
*/
func NewExchangeServer(url *jurl.URL, handler IExchangeHandler) (*ExchangeServer, error) {
	chain, err := BuildFilterChain(url, "provider", handler.Reply)
	if err != nil {
		return nil, err
	}
	return &ExchangeServer{
		url:     url,
		handler: chain,
		codec:   NewExchangeCodec(nil),
	}, nil
}

/*
   @brief:开始监听
*/
func (s *ExchangeServer) Start() error {
	transporter, err := jnet.GetTransporter()
	if err != nil {
		return err
	}
	server, err := transporter.Bind(s.url, s.newAgent)
	if err != nil {
		return err
	}
	s.server = server
	return nil
}

/*
   @brief:关闭服务端
*/
func (s *ExchangeServer) Close() {
	if s.server != nil {
		s.server.Close()
	}
}

func (s *ExchangeServer) GetUrl() *jurl.URL {
	return s.url
}

func (s *ExchangeServer) newAgent(conn jnet.IConn) jnet.Agent {
	return &serverAgent{
		conn:   conn,
		server: s,
		buffer: NewBuffer(4096),
	}
}

//serverAgent 一条连接上的服务端读循环
type serverAgent struct {
	conn   jnet.IConn
	server *ExchangeServer
	buffer *Buffer
}

func (agent *serverAgent) Run() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			l := runtime.Stack(buf, false)
			jlog.StdLogger.Errorf("core dump info[%v]\n%s", r, string(buf[:l]))
		}
	}()

	chunk := make([]byte, 4096)
	for {
		n, err := agent.conn.Read(chunk)
		if err != nil {
			jlog.StdLogger.Debug("exchange server read end: ", err.Error())
			return
		}
		agent.buffer.WriteBytes(chunk[:n])
		for {
			msg, err := agent.server.codec.Decode(agent.server.url, agent.buffer)
			if err != nil {
				jlog.StdLogger.Error("exchange server decode error: ", err.Error())
				agent.conn.Destroy()
				return
			}
			if msg == NeedMoreInput {
				break
			}
			agent.server.handleMessage(agent.conn, msg)
		}
		agent.buffer.DiscardReadBytes()
	}
}

func (agent *serverAgent) OnClose() {
	agent.buffer.Release()
}

func (s *ExchangeServer) handleMessage(conn jnet.IConn, msg interface{}) {
	switch m := msg.(type) {
	case *Request:
		s.handleRequest(conn, m)
	case *Response:
		//服务端不该收到响应帧
		jlog.StdLogger.Warnf("exchange server drop response %d", m.Id)
	case string:
		//telnet兜底解出来的文本命令
		jlog.StdLogger.Info("telnet command: ", m)
		s.send(conn, fmt.Sprintf("unsupported command: %s", m))
	default:
		jlog.StdLogger.Warnf("exchange server drop message %v", msg)
	}
}

func (s *ExchangeServer) handleRequest(conn jnet.IConn, req *Request) {
	//解码失败的请求，回一帧坏请求
	if req.Broken {
		if req.TwoWay {
			res := NewResponse(req.Id)
			res.Status = StatusBadRequest
			if err, ok := req.Data.(error); ok {
				res.ErrorMsg = err.Error()
			} else {
				res.ErrorMsg = fmt.Sprint(req.Data)
			}
			s.send(conn, res)
		}
		return
	}
	//心跳
	if req.IsHeartbeat() {
		if req.TwoWay {
			s.send(conn, NewHeartbeatResponse(req.Id))
		}
		return
	}
	//其他事件帧只记日志
	if req.Event {
		jlog.StdLogger.Info("exchange server received event: ", req.Data)
		return
	}

	result, err := s.handler(s.url, req)
	if !req.TwoWay {
		return
	}
	res := NewResponse(req.Id)
	if err != nil {
		res.Status = StatusServiceError
		res.ErrorMsg = err.Error()
	} else {
		res.Result = result
	}
	s.send(conn, res)
}

//编码并异步写出，编码失败时codec已经把替换的坏响应帧留在缓冲区里，照样发出去
func (s *ExchangeServer) send(conn jnet.IConn, msg interface{}) {
	buf := NewBuffer(1024)
	defer buf.Release()
	err := s.codec.Encode(s.url, buf, msg)
	if err != nil {
		jlog.StdLogger.Error("exchange server encode error: ", err.Error())
	}
	if buf.ReadableBytes() > 0 {
		if werr := conn.Write(buf.Bytes()); werr != nil {
			jlog.StdLogger.Error("exchange server write error: ", werr.Error())
		}
	}
}
