package jnet

import (
	"net"
	"strconv"
	"testing"
	"time"

	"JDubboFrame/jext"
	"JDubboFrame/jurl"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransporterWrapped(t *testing.T) {
	loader := jext.GetExtensionLoader(transporterType)

	ext, err := loader.GetExtension("tcp")
	require.NoError(t, err)
	//描述符里登记了日志wrapper，拿到的是包装过的实现
	wrapper, ok := ext.(*TransporterLogWrapper)
	require.True(t, ok)
	_, ok = wrapper.transporter.(*TcpTransporter)
	assert.True(t, ok)

	assert.Equal(t, "tcp", loader.GetDefaultExtensionName())
}

func TestGetTransporterAdaptive(t *testing.T) {
	transporter, err := GetTransporter()
	require.NoError(t, err)
	_, ok := transporter.(*AdaptiveTransporter)
	assert.True(t, ok)
}

type nopAgent struct {
	conn IConn
}

func (a *nopAgent) Run() {
	buf := make([]byte, 64)
	for {
		if _, err := a.conn.Read(buf); err != nil {
			return
		}
	}
}

func (a *nopAgent) OnClose() {
}

func TestAdaptiveBindAndConnect(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	url, err := jurl.ParseURL("dubbo://127.0.0.1:" + strconv.Itoa(port) + "/demo")
	require.NoError(t, err)

	transporter, err := GetTransporter()
	require.NoError(t, err)

	newAgent := func(conn IConn) Agent { return &nopAgent{conn: conn} }
	server, err := transporter.Bind(url, newAgent)
	require.NoError(t, err)
	defer server.Close()

	client, err := transporter.Connect(url.AddParameter("reconnect", "false"), newAgent)
	require.NoError(t, err)
	defer client.Close(true)

	for i := 0; i < 100 && !(client.IsConnected() && server.GetConnMgr().Len() == 1); i++ {
		time.Sleep(50 * time.Millisecond)
	}
	assert.True(t, client.IsConnected())
	assert.Equal(t, 1, server.GetConnMgr().Len())
}
