package jexchange

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"JDubboFrame/event"
	"JDubboFrame/jlog"
	"JDubboFrame/jnet"
	"JDubboFrame/jurl"

	"github.com/pkg/errors"
)

var clientSeq uint32

//ExchangeClient 交换层客户端，请求按id登记，响应回来后唤醒等待的调用方
type ExchangeClient struct {
	clientSeq uint32 //客户端序号，由clientSeq自增
	url       *jurl.URL
	pending   *PendingStore
	codec     *ExchangeCodec
	filter    HandlerFunc //consumer组的过滤器链，包住真正的发送

	client jnet.IClient

	connLock sync.RWMutex
	conn     jnet.IConn

	closeOnce     sync.Once
	heartbeatStop chan struct{}

	//连接事件从这里广播出去，监听方注册ExchangeConnectEvent/ExchangeDisconnectEvent
	Publisher event.IEventPublisher
}

/*
    @brief:构造交换层客户端
	URL参数:timeout调用超时毫秒，heartbeat心跳间隔毫秒，transporter传输层实现名
	@param [in] url:远端URL
*/
func NewExchangeClient(url *jurl.URL) (*ExchangeClient, error) {
	timeout := time.Duration(url.GetPositiveIntParameter("timeout", 0)) * time.Millisecond
	c := &ExchangeClient{
		clientSeq:     atomic.AddUint32(&clientSeq, 1),
		url:           url,
		pending:       NewPendingStore(timeout),
		heartbeatStop: make(chan struct{}),
		Publisher:     event.NewEventPublisher(),
	}
	c.codec = NewExchangeCodec(c.pending)
	chain, err := BuildFilterChain(url, "consumer", c.doSend)
	if err != nil {
		return nil, err
	}
	c.filter = chain
	return c, nil
}

/*
   @brief:建立连接，心跳按URL配置的间隔自动发送
*/
func (c *ExchangeClient) Connect() error {
	transporter, err := jnet.GetTransporter()
	if err != nil {
		return err
	}
	client, err := transporter.Connect(c.url, c.newAgent)
	if err != nil {
		return err
	}
	c.client = client
	if hb := c.url.GetPositiveIntParameter("heartbeat", 0); hb > 0 {
		go c.heartbeatLoop(time.Duration(hb) * time.Millisecond)
	}
	return nil
}

/*
   @brief:关闭客户端
*/
func (c *ExchangeClient) Close() {
	c.closeOnce.Do(func() {
		close(c.heartbeatStop)
		if c.client != nil {
			c.client.Close(true)
		}
	})
}

func (c *ExchangeClient) GetUrl() *jurl.URL {
	return c.url
}

func (c *ExchangeClient) GetClientSeq() uint32 {
	return c.clientSeq
}

func (c *ExchangeClient) IsConnected() bool {
	c.connLock.RLock()
	defer c.connLock.RUnlock()
	return c.conn != nil && !c.conn.IsClosed()
}

/*
    @brief:发起一次双向调用，返回未完成的Call，调用方用Done()等结果
	@param [in] serviceMethod:形如 Service.Method
	@param [in] input:编码好的方法参数
	@param [in] reply:结果接收对象的指针，响应会被定向解码进去
*/
func (c *ExchangeClient) Call(serviceMethod string, input []byte, reply interface{}) *Call {
	req := NewRequest()
	req.TwoWay = true
	req.Data = &Invocation{ServiceMethod: serviceMethod, Input: input}

	call := NewCall()
	call.Seq = req.Id
	call.Request = req
	call.Reply = reply
	c.pending.Register(call)

	if err := c.filterSend(c.url, req); err != nil {
		c.pending.Take(call.Seq)
		call.Err = err
		call.finish()
	}
	return call
}

/*
    @brief:单向调用，不要响应
	@param [in] serviceMethod:形如 Service.Method
	@param [in] input:编码好的方法参数
*/
func (c *ExchangeClient) Oneway(serviceMethod string, input []byte) error {
	req := NewRequest()
	req.TwoWay = false
	req.Data = &Invocation{ServiceMethod: serviceMethod, Input: input}
	return c.filterSend(c.url, req)
}

/*
   @brief:主动发一个心跳
*/
func (c *ExchangeClient) Heartbeat() error {
	_, err := c.doSend(c.url, NewHeartbeatRequest())
	return err
}

//过滤器链的最里层，编码并写到连接上
func (c *ExchangeClient) doSend(url *jurl.URL, req *Request) (interface{}, error) {
	conn := c.getConn()
	if conn == nil {
		return nil, errors.New("exchange client is disconnect")
	}
	buf := NewBuffer(1024)
	defer buf.Release()
	if err := c.codec.Encode(url, buf, req); err != nil {
		return nil, err
	}
	if err := conn.Write(buf.Bytes()); err != nil {
		return nil, err
	}
	return nil, nil
}

//filter签名是HandlerFunc，这里只关心error
func (c *ExchangeClient) filterSend(url *jurl.URL, req *Request) error {
	_, err := c.filter(url, req)
	return err
}

func (c *ExchangeClient) getConn() jnet.IConn {
	c.connLock.RLock()
	defer c.connLock.RUnlock()
	return c.conn
}

func (c *ExchangeClient) setConn(conn jnet.IConn) {
	c.connLock.Lock()
	c.conn = conn
	c.connLock.Unlock()
}

func (c *ExchangeClient) newAgent(conn jnet.IConn) jnet.Agent {
	c.setConn(conn)
	return &clientAgent{
		conn:   conn,
		client: c,
		buffer: NewBuffer(4096),
	}
}

func (c *ExchangeClient) heartbeatLoop(interval time.Duration) {
	for {
		select {
		case <-c.heartbeatStop:
			return
		case <-time.After(interval):
			if !c.IsConnected() {
				continue
			}
			if err := c.Heartbeat(); err != nil {
				jlog.StdLogger.Warn("heartbeat send failed: ", err.Error())
			}
		}
	}
}

//clientAgent 一条连接上的客户端读循环
type clientAgent struct {
	conn   jnet.IConn
	client *ExchangeClient
	buffer *Buffer
}

func (agent *clientAgent) Run() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			l := runtime.Stack(buf, false)
			jlog.StdLogger.Errorf("core dump info[%v]\n%s", r, string(buf[:l]))
		}
	}()

	//广播连接建立事件
	agent.client.Publisher.BroadCastEvent(&event.Event{
		Type: event.ExchangeConnectEvent,
		Data: agent.conn.RemoteAddr().String(),
	})

	chunk := make([]byte, 4096)
	for {
		n, err := agent.conn.Read(chunk)
		if err != nil {
			jlog.StdLogger.Debug("exchange client read end: ", err.Error())
			return
		}
		agent.buffer.WriteBytes(chunk[:n])
		for {
			msg, err := agent.client.codec.Decode(agent.client.url, agent.buffer)
			if err != nil {
				jlog.StdLogger.Error("exchange client decode error: ", err.Error())
				agent.conn.Destroy()
				return
			}
			if msg == NeedMoreInput {
				break
			}
			agent.client.handleMessage(agent.conn, msg)
		}
		agent.buffer.DiscardReadBytes()
	}
}

func (agent *clientAgent) OnClose() {
	agent.buffer.Release()
	agent.client.setConn(nil)
	//广播连接断开事件
	agent.client.Publisher.BroadCastEvent(&event.Event{
		Type: event.ExchangeDisconnectEvent,
		Data: agent.conn.RemoteAddr().String(),
	})
}

func (c *ExchangeClient) handleMessage(conn jnet.IConn, msg interface{}) {
	switch m := msg.(type) {
	case *Response:
		c.handleResponse(m)
	case *Request:
		//服务端发来的心跳或事件
		if m.IsHeartbeat() {
			if m.TwoWay {
				buf := NewBuffer(64)
				if err := c.codec.Encode(c.url, buf, NewHeartbeatResponse(m.Id)); err == nil {
					conn.Write(buf.Bytes())
				}
				buf.Release()
			}
			return
		}
		jlog.StdLogger.Info("exchange client received event: ", m.Data)
	case string:
		jlog.StdLogger.Info("telnet message: ", m)
	default:
		jlog.StdLogger.Warnf("exchange client drop message %v", msg)
	}
}

func (c *ExchangeClient) handleResponse(res *Response) {
	if res.IsHeartbeat() {
		return
	}
	call := c.pending.Take(res.Id)
	if call == nil {
		//对应的请求已经不在了，比如已经超时完成，直接丢弃
		jlog.StdLogger.Warnf("exchange client cannot find call %d in pending, drop response", res.Id)
		return
	}
	call.Response = res
	if !res.IsOK() {
		call.Err = errors.Errorf("remote error(status %d): %s", res.Status, res.ErrorMsg)
	}
	call.finish()
}
