package jnet

import (
	"net"
	"sync"
	"time"

	"JDubboFrame/jlog"
)

//TcpClient 连接端，连接断开后按配置自动重连
type TcpClient struct {
	sync.Mutex
	name       string
	ipVersion  string
	RemoteAddr string //ip:port
	isClosed   bool
	wg         sync.WaitGroup

	NewAgent        NewAgentFunc
	connMgr         *ConnManager
	maxConnectTimes int //单轮最大尝试连接次数
	AutoReconnect   bool
	ConnectInterval time.Duration

	onConnStart func(conn IConn)
	onConnClose func(conn IConn)
}

/*
    @brief:TcpClient的构造函数
	@param [in] clientName:客户端名
	@param [in] remoteAddr:远程地址 ip:port
*/
func NewTcpClient(clientName string, remoteAddr string) *TcpClient {
	c := &TcpClient{
		name:            clientName,
		ipVersion:       "tcp4",
		RemoteAddr:      remoteAddr,
		isClosed:        false,
		maxConnectTimes: 5,
		ConnectInterval: 3 * time.Second,
		AutoReconnect:   false,
		connMgr:         NewConnManager(), //作为客户端一般只有一条连接
	}
	return c
}

/*
   @brief:client启动，连接协程里完成拨号和agent运行
*/
func (client *TcpClient) Start() {
	client.wg.Add(1)
	go client.connect()
}

func (client *TcpClient) connect() {
	defer client.wg.Done()
	var cid uint32 = 1
reconnect:
	conn := client.dial()
	if conn == nil {
		return
	}

	if client.isClosed {
		conn.Close()
		return
	}

	tcpConn := NewTcpConn(conn, cid)
	client.connMgr.Add(tcpConn)
	if client.onConnStart != nil {
		client.onConnStart(tcpConn)
	}
	cid++

	agent := client.NewAgent(tcpConn)
	agent.Run()

	//连接结束，清理资源
	if client.onConnClose != nil {
		client.onConnClose(tcpConn)
	}
	tcpConn.Close()
	client.connMgr.Remove(tcpConn)
	agent.OnClose()

	//若设置了自动重连，则会重新开始
	if client.AutoReconnect && !client.isClosed {
		time.Sleep(client.ConnectInterval)
		goto reconnect
	}
}

/*
    @brief:client关闭
	@param [in] waitDone:是否等待所有conn的agent结束
*/
func (client *TcpClient) Close(waitDone bool) {
	if client.isClosed {
		return
	}
	client.isClosed = true
	client.connMgr.ClearConn()
	if waitDone {
		client.wg.Wait()
	}
}

func (client *TcpClient) dial() *net.TCPConn {
	addr, err := net.ResolveTCPAddr(client.ipVersion, client.RemoteAddr)
	if err != nil {
		jlog.StdLogger.Error("resolve tcp addr err: ", err.Error())
		return nil
	}
	//不断重连，直至client关闭或是连接成功，或超过最大连接次数
	connectTimes := client.maxConnectTimes
	for {
		conn, err := net.DialTCP(client.ipVersion, nil, addr)
		connectTimes--
		if client.isClosed {
			return conn
		} else if err == nil && conn != nil {
			conn.SetNoDelay(true)
			return conn
		} else if connectTimes <= 0 {
			jlog.StdLogger.Error("connect exceed maxConnectTimes ")
			return nil
		}

		jlog.StdLogger.Warn("connect to ", addr, " error:", err.Error())
		time.Sleep(client.ConnectInterval)
	}
}

func (client *TcpClient) GetConnMgr() *ConnManager {
	return client.connMgr
}

func (client *TcpClient) SetOnConnStart(hookFunc func(IConn)) {
	client.onConnStart = hookFunc
}

func (client *TcpClient) SetOnConnClose(hookFunc func(IConn)) {
	client.onConnClose = hookFunc
}

func (client *TcpClient) GetName() string {
	return client.name
}

/*
   @brief:当前是否有存活连接
*/
func (client *TcpClient) IsConnected() bool {
	return client.connMgr.Len() > 0
}
