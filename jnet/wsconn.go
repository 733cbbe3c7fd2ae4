package jnet

import (
	"net"
	"sync"

	"JDubboFrame/jlog"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

//WsConn websocket连接，二进制message承载交换层的帧
//gorilla的conn只允许一个写协程，和tcp一样走writeChan
type WsConn struct {
	conn   *websocket.Conn
	connID uint32
	sync.Mutex
	writeChan chan []byte

	isClosed bool
	leftover []byte //上一条message没读完的部分
}

/*
    @brief:WsConn的构造方法，同时拉起写协程
	@param [in] conn:websocket连接
	@param [in] connID:连接id
*/
func NewWsConn(conn *websocket.Conn, connID uint32) *WsConn {
	c := &WsConn{
		conn:      conn,
		connID:    connID,
		writeChan: make(chan []byte, 1024),
	}
	go func() {
		for b := range c.writeChan {
			if b == nil {
				break
			}
			err := conn.WriteMessage(websocket.BinaryMessage, b)
			connSlicePoolList.ReleaseByteSlice(b)
			if err != nil {
				break
			}
		}

		c.conn.Close()
		c.Lock()
		freeWsChannel(c)
		c.isClosed = true
		c.Unlock()
	}()
	return c
}

/*
    @brief:读原始字节，message边界被抹平，交换层按自己的帧长切
	@param [in][out] b:读出的数据
*/
func (conn *WsConn) Read(b []byte) (int, error) {
	for len(conn.leftover) == 0 {
		t, data, err := conn.conn.ReadMessage()
		if err != nil {
			return 0, err
		}
		if t != websocket.BinaryMessage {
			continue
		}
		conn.leftover = data
	}
	n := copy(b, conn.leftover)
	conn.leftover = conn.leftover[n:]
	return n, nil
}

/*
   @brief:异步写一段字节，数据被拷贝
*/
func (conn *WsConn) Write(b []byte) error {
	conn.Lock()
	defer conn.Unlock()
	if conn.isClosed || b == nil {
		return errors.New("conn is close")
	}
	buf := connSlicePoolList.MakeByteSlice(len(b))
	copy(buf, b)
	return conn.doWrite(buf[:len(b)])
}

func (conn *WsConn) doWrite(b []byte) error {
	if len(conn.writeChan) == cap(conn.writeChan) {
		if b != nil {
			connSlicePoolList.ReleaseByteSlice(b)
		}
		jlog.StdLogger.Error("close ws conn: channel full")
		conn.doDestroy()
		return errors.New("close ws conn: channel full")
	}
	conn.writeChan <- b
	return nil
}

func (conn *WsConn) Close() {
	conn.Lock()
	defer conn.Unlock()
	if conn.isClosed {
		return
	}
	conn.doWrite(nil)
	conn.isClosed = true
}

func (conn *WsConn) Destroy() {
	conn.Lock()
	defer conn.Unlock()
	conn.doDestroy()
}

func (conn *WsConn) doDestroy() {
	conn.conn.Close()
	if !conn.isClosed {
		close(conn.writeChan)
		conn.isClosed = true
	}
}

func freeWsChannel(conn *WsConn) {
	for len(conn.writeChan) > 0 {
		byteBuff := <-conn.writeChan
		if byteBuff != nil {
			connSlicePoolList.ReleaseByteSlice(byteBuff)
		}
	}
}

func (conn *WsConn) IsClosed() bool {
	conn.Lock()
	defer conn.Unlock()
	return conn.isClosed
}

func (conn *WsConn) GetConnID() uint32 {
	return conn.connID
}

func (conn *WsConn) RemoteAddr() net.Addr {
	return conn.conn.RemoteAddr()
}

func (conn *WsConn) LocalAddr() net.Addr {
	return conn.conn.LocalAddr()
}
