package jnet

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"JDubboFrame/jlog"

	"github.com/gorilla/websocket"
)

//websocket承载交换层帧时用的路径
const WsPath = "/exchange"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

//WsServer websocket监听端，升级成功的连接交给agent
type WsServer struct {
	name     string
	Addr     string
	isClosed bool
	NewAgent NewAgentFunc

	httpServer *http.Server
	wgConns    sync.WaitGroup

	MaxConnNum int
	connMgr    *ConnManager
	cid        uint32
}

/*
    @brief:WsServer的构造方法
	@param [in] name:服务名
	@param [in] addr:监听地址 ip:port
*/
func NewWsServer(name string, addr string) *WsServer {
	return &WsServer{
		name:       name,
		Addr:       addr,
		MaxConnNum: 10000,
		connMgr:    NewConnManager(),
	}
}

/*
   @brief:开启服务
*/
func (server *WsServer) Start() {
	mux := http.NewServeMux()
	mux.HandleFunc(WsPath, server.serveWs)
	server.httpServer = &http.Server{Addr: server.Addr, Handler: mux}
	go func() {
		err := server.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			jlog.StdLogger.Errorf("ws listen %s err %s", server.Addr, err.Error())
		}
	}()
}

func (server *WsServer) serveWs(w http.ResponseWriter, r *http.Request) {
	if server.isClosed {
		http.Error(w, "server closed", http.StatusServiceUnavailable)
		return
	}
	if server.connMgr.Len() >= server.MaxConnNum {
		jlog.StdLogger.Error("too much conn ", server.connMgr.Len())
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}
	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		jlog.StdLogger.Error("ws upgrade err: ", err.Error())
		return
	}

	dealConn := NewWsConn(wsConn, atomic.AddUint32(&server.cid, 1))
	server.connMgr.Add(dealConn)
	agent := server.NewAgent(dealConn)
	server.wgConns.Add(1)
	go func() {
		agent.Run()

		dealConn.Close()
		server.connMgr.Remove(dealConn)
		agent.OnClose()

		server.wgConns.Done()
	}()
}

/*
   @brief:关闭server
*/
func (server *WsServer) Close() {
	if server.isClosed {
		return
	}
	server.isClosed = true
	if server.httpServer != nil {
		server.httpServer.Close()
	}
	server.connMgr.ClearConn()
	server.wgConns.Wait()
}

func (server *WsServer) GetName() string {
	return server.name
}

func (server *WsServer) GetConnMgr() *ConnManager {
	return server.connMgr
}

//WsClient websocket连接端
type WsClient struct {
	name       string
	RemoteAddr string //ip:port
	isClosed   bool
	wg         sync.WaitGroup

	NewAgent        NewAgentFunc
	connMgr         *ConnManager
	AutoReconnect   bool
	ConnectInterval time.Duration
}

/*
    @brief:WsClient的构造函数
	@param [in] clientName:客户端名
	@param [in] remoteAddr:远程地址 ip:port
*/
func NewWsClient(clientName string, remoteAddr string) *WsClient {
	return &WsClient{
		name:            clientName,
		RemoteAddr:      remoteAddr,
		ConnectInterval: 3 * time.Second,
		connMgr:         NewConnManager(),
	}
}

func (client *WsClient) Start() {
	client.wg.Add(1)
	go client.connect()
}

func (client *WsClient) connect() {
	defer client.wg.Done()
	var cid uint32 = 1
reconnect:
	wsConn, _, err := websocket.DefaultDialer.Dial("ws://"+client.RemoteAddr+WsPath, nil)
	if err != nil {
		jlog.StdLogger.Error("connect to ws://", client.RemoteAddr, " error:", err.Error())
		if client.AutoReconnect && !client.isClosed {
			time.Sleep(client.ConnectInterval)
			goto reconnect
		}
		return
	}
	if client.isClosed {
		wsConn.Close()
		return
	}

	conn := NewWsConn(wsConn, cid)
	client.connMgr.Add(conn)
	cid++

	agent := client.NewAgent(conn)
	agent.Run()

	conn.Close()
	client.connMgr.Remove(conn)
	agent.OnClose()

	if client.AutoReconnect && !client.isClosed {
		time.Sleep(client.ConnectInterval)
		goto reconnect
	}
}

func (client *WsClient) Close(waitDone bool) {
	if client.isClosed {
		return
	}
	client.isClosed = true
	client.connMgr.ClearConn()
	if waitDone {
		client.wg.Wait()
	}
}

func (client *WsClient) GetName() string {
	return client.name
}

func (client *WsClient) IsConnected() bool {
	return client.connMgr.Len() > 0
}
