package event

type EventType int

//交换层的连接生命周期事件
const (
	ExchangeConnectEvent    EventType = -1 //连接建立，Data是远端地址
	ExchangeDisconnectEvent EventType = -2 //连接断开，Data是远端地址
	ExchangeTimeoutEvent    EventType = -3 //调用超时，Data是请求id
)
