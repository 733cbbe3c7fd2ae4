package jnet

import (
	"net"
	"sync"

	"JDubboFrame/jlog"
	mempool "JDubboFrame/memorypool"

	"github.com/pkg/errors"
)

//写缓冲用的切片内存池
var connSlicePoolList = mempool.NewSlicePoolList(3,
	mempool.NewSlicePool(1, 4096, 512),
	mempool.NewSlicePool(4097, 40960, 4096),
	mempool.NewSlicePool(40961, 417792, 16384),
)

//TcpConn tcp连接，读同步写异步，写协程从writeChan里取数据落到socket上
type TcpConn struct {
	conn   *net.TCPConn
	connID uint32
	sync.Mutex
	writeChan chan []byte //读写两个协程之间的消息通道

	isClosed bool

	property     map[string]interface{} //链接属性
	propertyLock sync.RWMutex
}

/*
    @brief:TcpConn的构造方法，同时拉起写协程
	@param [in] conn:socket连接
	@param [in] connID:连接id
*/
func NewTcpConn(conn *net.TCPConn, connID uint32) *TcpConn {
	c := &TcpConn{
		conn:      conn,
		connID:    connID,
		isClosed:  false,
		writeChan: make(chan []byte, 1024),
		property:  make(map[string]interface{}),
	}
	go func() {
		for b := range c.writeChan {
			if b == nil {
				break
			}
			_, err := conn.Write(b)
			connSlicePoolList.ReleaseByteSlice(b)
			if err != nil {
				break
			}
		}

		c.conn.Close()
		c.Lock()
		freeChannel(c)
		c.isClosed = true
		c.Unlock()
	}()
	return c
}

/*
    @brief:异步写一段字节，数据被拷贝进池化切片，写协程写完后归还
	@param [in] b:需要写入的数据
*/
func (conn *TcpConn) Write(b []byte) error {
	conn.Lock()
	defer conn.Unlock()
	if conn.isClosed || b == nil {
		return errors.New("conn is close")
	}
	buf := connSlicePoolList.MakeByteSlice(len(b))
	copy(buf, b)
	return conn.doWrite(buf[:len(b)])
}

/*
    @brief:从conn中读出原始字节
	@param [in][out] b:读出的数据
	@return:读出的字节数
*/
func (conn *TcpConn) Read(b []byte) (int, error) {
	return conn.conn.Read(b)
}

/*
   @brief:强制关闭
*/
func (conn *TcpConn) Destroy() {
	conn.Lock()
	defer conn.Unlock()

	conn.doDestroy()
}

/*
   @brief:优雅关闭，写完积压数据再断
*/
func (conn *TcpConn) Close() {
	conn.Lock()
	defer conn.Unlock()
	if conn.isClosed {
		return
	}
	conn.doWrite(nil)
	conn.isClosed = true
}

func (conn *TcpConn) doDestroy() {
	//不管是否有数据，强制中断连接
	conn.conn.SetLinger(0)
	conn.conn.Close()

	if !conn.isClosed {
		close(conn.writeChan)
		conn.isClosed = true
	}
}

/*
   @brief:释放write chan里积压的数据
*/
func freeChannel(conn *TcpConn) {
	for len(conn.writeChan) > 0 {
		byteBuff := <-conn.writeChan
		if byteBuff != nil {
			connSlicePoolList.ReleaseByteSlice(byteBuff)
		}
	}
}

func (conn *TcpConn) doWrite(b []byte) error {
	if len(conn.writeChan) == cap(conn.writeChan) {
		if b != nil {
			connSlicePoolList.ReleaseByteSlice(b)
		}
		jlog.StdLogger.Error("close conn: channel full")
		conn.doDestroy()
		return errors.New("close conn: channel full")
	}

	conn.writeChan <- b
	return nil
}

/*
   @brief:从当前连接获取原始的socket TCPConn
*/
func (conn *TcpConn) GetTCPConnection() *net.TCPConn {
	return conn.conn
}

func (conn *TcpConn) GetConnID() uint32 {
	return conn.connID
}

func (conn *TcpConn) RemoteAddr() net.Addr {
	return conn.conn.RemoteAddr()
}

func (conn *TcpConn) LocalAddr() net.Addr {
	return conn.conn.LocalAddr()
}

func (conn *TcpConn) IsClosed() bool {
	conn.Lock()
	defer conn.Unlock()
	return conn.isClosed
}

/*
    @brief:设置链接属性
	@param [in] key:属性名
	@param [in] value:值
*/
func (conn *TcpConn) SetProperty(key string, value interface{}) {
	conn.propertyLock.Lock()
	defer conn.propertyLock.Unlock()

	conn.property[key] = value
}

/*
    @brief:获取链接属性
	@param [in] key:属性名
*/
func (conn *TcpConn) GetProperty(key string) (interface{}, error) {
	conn.propertyLock.RLock()
	defer conn.propertyLock.RUnlock()

	if value, ok := conn.property[key]; ok {
		return value, nil
	}
	return nil, errors.New("no property found")
}
