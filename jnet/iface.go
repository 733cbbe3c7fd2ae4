package jnet

import (
	"net"

	"JDubboFrame/jurl"
)

//IConn 一条原始字节流连接，交换层在上面跑帧
type IConn interface {
	//Read 读原始字节，交换层的读循环往自己的缓冲区里灌
	Read(b []byte) (int, error)
	//Write 异步写一段字节，数据会被拷贝，调用后b可以复用
	Write(b []byte) error
	RemoteAddr() net.Addr
	LocalAddr() net.Addr
	//Close 优雅关闭，写完积压数据再断
	Close()
	//Destroy 强制关闭
	Destroy()
	IsClosed() bool
	GetConnID() uint32
}

//Agent 一条连接上的业务处理器，Run在独立协程里跑读循环
type Agent interface {
	Run()
	OnClose()
}

//NewAgentFunc 连接建立时创建agent的回调
type NewAgentFunc func(conn IConn) Agent

//IServer 监听端
type IServer interface {
	Start()
	Close()
	GetName() string
	GetConnMgr() *ConnManager
}

//IClient 连接端
type IClient interface {
	Start()
	Close(waitDone bool)
	GetName() string
	IsConnected() bool
}

//ITransporter 传输层扩展点，URL的transporter参数决定用哪个实现
type ITransporter interface {
	Bind(url *jurl.URL, newAgent NewAgentFunc) (IServer, error)
	Connect(url *jurl.URL, newAgent NewAgentFunc) (IClient, error)
}
