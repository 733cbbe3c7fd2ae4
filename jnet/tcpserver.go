package jnet

import (
	"net"
	"sync"
	"time"

	"JDubboFrame/jlog"
)

//TcpServer tcp监听端，每条新连接创建一个agent在独立协程里跑
type TcpServer struct {
	name      string
	ipVersion string
	Addr      string

	listener *net.TCPListener
	isClosed bool
	NewAgent NewAgentFunc

	wgLn    sync.WaitGroup
	wgConns sync.WaitGroup

	MaxConnNum int
	connMgr    *ConnManager //当前Server的链接管理器

	onConnStart func(conn IConn) //连接创建时Hook函数
	onConnClose func(conn IConn) //连接断开时Hook函数
}

/*
    @brief:TcpServer的构造方法
	@param [in] name:服务名
	@param [in] addr:监听地址 ip:port
*/
func NewTcpServer(name string, addr string) *TcpServer {
	s := &TcpServer{
		name:       name,
		ipVersion:  "tcp4",
		Addr:       addr,
		isClosed:   false,
		MaxConnNum: 10000,
		connMgr:    NewConnManager(),
	}
	return s
}

/*
   @brief:开启服务
*/
func (server *TcpServer) Start() {
	go server.run()
}

func (s *TcpServer) run() {
	s.wgLn.Add(1)
	defer s.wgLn.Done()

	addr, err := net.ResolveTCPAddr(s.ipVersion, s.Addr)
	if err != nil {
		jlog.StdLogger.Error("resolve tcp addr err: ", err.Error())
		return
	}

	listener, err := net.ListenTCP(s.ipVersion, addr)
	if err != nil {
		jlog.StdLogger.Errorf("listen %s err %s", s.ipVersion, err.Error())
		return
	}
	s.listener = listener

	var cid uint32
	var tempDelay time.Duration
	for {
		if s.isClosed {
			break
		}
		conn, err := s.listener.AcceptTCP()
		if err != nil {
			//超时错误退避后重试
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				if tempDelay == 0 {
					tempDelay = 5 * time.Millisecond
				} else {
					tempDelay *= 2
				}
				if max := 1 * time.Second; tempDelay > max {
					tempDelay = max
				}
				jlog.StdLogger.Error("accept error:", err.Error(), "; retrying in ", tempDelay)
				time.Sleep(tempDelay)
				continue
			}
			if !s.isClosed {
				jlog.StdLogger.Errorf("accept err %s ", err.Error())
			}
			return
		}
		conn.SetNoDelay(true)
		tempDelay = 0

		//连接数超过了最大连接数则断开连接
		if s.connMgr.Len() >= s.MaxConnNum {
			jlog.StdLogger.Error("too much conn ", s.connMgr.Len())
			conn.Close()
			continue
		}

		dealConn := NewTcpConn(conn, cid)
		s.connMgr.Add(dealConn)
		if s.onConnStart != nil {
			s.onConnStart(dealConn)
		}
		cid++

		agent := s.NewAgent(dealConn)
		s.wgConns.Add(1)
		go func() {
			agent.Run()

			//该连接结束，清理资源
			if s.onConnClose != nil {
				s.onConnClose(dealConn)
			}
			dealConn.Close()
			s.connMgr.Remove(dealConn)
			agent.OnClose()

			s.wgConns.Done()
		}()
	}
}

/*
   @brief:关闭server，等监听协程和所有连接的agent退出
*/
func (server *TcpServer) Close() {
	if server.isClosed {
		return
	}
	server.isClosed = true
	if server.listener != nil {
		server.listener.Close()
	}
	server.wgLn.Wait()

	server.connMgr.ClearConn()
	server.wgConns.Wait()
}

func (s *TcpServer) GetName() string {
	return s.name
}

func (s *TcpServer) GetConnMgr() *ConnManager {
	return s.connMgr
}

/*
    @brief:设置连接创建时Hook函数
	@param [in] hookFunc:hook函数
*/
func (s *TcpServer) SetOnConnStart(hookFunc func(IConn)) {
	s.onConnStart = hookFunc
}

/*
    @brief:设置连接断开时Hook函数
	@param [in] hookFunc:hook函数
*/
func (s *TcpServer) SetOnConnClose(hookFunc func(IConn)) {
	s.onConnClose = hookFunc
}
