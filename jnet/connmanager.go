package jnet

import (
	"sync"

	"JDubboFrame/jlog"

	"github.com/pkg/errors"
)

//ConnManager 连接管理模块，server和client都用它记账
type ConnManager struct {
	connections map[uint32]IConn //connID-conn
	connLock    sync.RWMutex
}

/*
   @brief:连接管理器构造函数
*/
func NewConnManager() *ConnManager {
	return &ConnManager{
		connections: make(map[uint32]IConn),
	}
}

/*
   @brief:添加连接
*/
func (connMgr *ConnManager) Add(conn IConn) {
	connMgr.connLock.Lock()
	defer connMgr.connLock.Unlock()

	connMgr.connections[conn.GetConnID()] = conn
}

/*
   @brief:删除连接
*/
func (connMgr *ConnManager) Remove(conn IConn) {
	connMgr.connLock.Lock()
	defer connMgr.connLock.Unlock()

	delete(connMgr.connections, conn.GetConnID())
}

/*
    @brief:根据connID获取连接
	@param [in] connID:连接id
*/
func (connMgr *ConnManager) Get(connID uint32) (IConn, error) {
	connMgr.connLock.RLock()
	defer connMgr.connLock.RUnlock()

	if conn, ok := connMgr.connections[connID]; ok {
		return conn, nil
	}
	return nil, errors.New("connection not found")
}

/*
   @brief:获取当前连接数
*/
func (connMgr *ConnManager) Len() int {
	connMgr.connLock.RLock()
	defer connMgr.connLock.RUnlock()
	return len(connMgr.connections)
}

/*
   @brief:清除并停止所有连接
*/
func (connMgr *ConnManager) ClearConn() {
	connMgr.connLock.Lock()
	defer connMgr.connLock.Unlock()

	for _, conn := range connMgr.connections {
		conn.Close()
	}
	if len(connMgr.connections) > 0 {
		connMgr.connections = make(map[uint32]IConn)
	}

	jlog.StdLogger.Info("clear all connections successfully")
}
