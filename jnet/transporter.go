package jnet

import (
	"embed"
	"reflect"

	"JDubboFrame/jext"
	"JDubboFrame/jlog"
	"JDubboFrame/jurl"
)

//go:embed META-INF
var descriptorFS embed.FS

var transporterType = jext.TypeOf((*ITransporter)(nil))

func init() {
	jext.AddProviderFS(descriptorFS)
	jext.RegisterSPI(jext.SPI{
		Type:    transporterType,
		Default: "tcp",
		Methods: []jext.AdaptiveMethod{
			{Name: "Bind", Keys: []string{"server", "transporter"}},
			{Name: "Connect", Keys: []string{"client", "transporter"}},
		},
		NewAdaptive: func(ctx *jext.AdaptiveContext) interface{} {
			return &AdaptiveTransporter{ctx: ctx}
		},
	})
	jext.RegisterClass(jext.Class{
		Type: reflect.TypeOf(TcpTransporter{}),
		New:  func() interface{} { return &TcpTransporter{} },
	})
	jext.RegisterClass(jext.Class{
		Type: reflect.TypeOf(WsTransporter{}),
		New:  func() interface{} { return &WsTransporter{} },
	})
	jext.RegisterClass(jext.Class{
		Type: reflect.TypeOf(TransporterLogWrapper{}),
		Wrap: func(inner interface{}) interface{} {
			return &TransporterLogWrapper{transporter: inner.(ITransporter)}
		},
	})
}

/*
    @brief:取传输层扩展点的自适应实现，它在每次Bind/Connect时按传入的URL选出实现并委托
*/
func GetTransporter() (ITransporter, error) {
	ext, err := jext.GetExtensionLoader(transporterType).GetAdaptiveExtension()
	if err != nil {
		return nil, err
	}
	return ext.(ITransporter), nil
}

//AdaptiveTransporter 传输层扩展点的自适应模板
type AdaptiveTransporter struct {
	ctx *jext.AdaptiveContext
}

func (t *AdaptiveTransporter) Bind(url *jurl.URL, newAgent NewAgentFunc) (IServer, error) {
	ext, err := t.ctx.Extension("Bind", url, nil)
	if err != nil {
		return nil, err
	}
	return ext.(ITransporter).Bind(url, newAgent)
}

func (t *AdaptiveTransporter) Connect(url *jurl.URL, newAgent NewAgentFunc) (IClient, error) {
	ext, err := t.ctx.Extension("Connect", url, nil)
	if err != nil {
		return nil, err
	}
	return ext.(ITransporter).Connect(url, newAgent)
}

//TcpTransporter tcp传输层
type TcpTransporter struct {
}

func (t *TcpTransporter) Bind(url *jurl.URL, newAgent NewAgentFunc) (IServer, error) {
	server := NewTcpServer(url.GetParam("name", "jdubbo"), url.GetAddress())
	server.MaxConnNum = url.GetPositiveIntParameter("accepts", server.MaxConnNum)
	server.NewAgent = newAgent
	server.Start()
	return server, nil
}

func (t *TcpTransporter) Connect(url *jurl.URL, newAgent NewAgentFunc) (IClient, error) {
	client := NewTcpClient(url.GetParam("name", "jdubbo"), url.GetAddress())
	client.AutoReconnect = url.GetParam("reconnect", "true") != "false"
	client.NewAgent = newAgent
	client.Start()
	return client, nil
}

//WsTransporter websocket传输层
type WsTransporter struct {
}

func (t *WsTransporter) Bind(url *jurl.URL, newAgent NewAgentFunc) (IServer, error) {
	server := NewWsServer(url.GetParam("name", "jdubbo"), url.GetAddress())
	server.MaxConnNum = url.GetPositiveIntParameter("accepts", server.MaxConnNum)
	server.NewAgent = newAgent
	server.Start()
	return server, nil
}

func (t *WsTransporter) Connect(url *jurl.URL, newAgent NewAgentFunc) (IClient, error) {
	client := NewWsClient(url.GetParam("name", "jdubbo"), url.GetAddress())
	client.AutoReconnect = url.GetParam("reconnect", "true") != "false"
	client.NewAgent = newAgent
	client.Start()
	return client, nil
}

//TransporterLogWrapper 传输层的日志wrapper，建连和监听时记一笔
type TransporterLogWrapper struct {
	transporter ITransporter
}

func (w *TransporterLogWrapper) Bind(url *jurl.URL, newAgent NewAgentFunc) (IServer, error) {
	server, err := w.transporter.Bind(url, newAgent)
	if err != nil {
		jlog.StdLogger.Errorf("bind %s failed: %v", url.String(), err)
		return nil, err
	}
	jlog.StdLogger.Info("bind on ", url.GetAddress())
	return server, nil
}

func (w *TransporterLogWrapper) Connect(url *jurl.URL, newAgent NewAgentFunc) (IClient, error) {
	client, err := w.transporter.Connect(url, newAgent)
	if err != nil {
		jlog.StdLogger.Errorf("connect %s failed: %v", url.String(), err)
		return nil, err
	}
	jlog.StdLogger.Info("connect to ", url.GetAddress())
	return client, nil
}
