package jexchange

import (
	"strconv"
	"sync"
	"time"

	"JDubboFrame/jlog"
	"JDubboFrame/jtimer"
	mempool "JDubboFrame/memorypool"

	"github.com/pkg/errors"
)

//等待响应的缺省超时
var DefaultCallTimeout = 15 * time.Second

var maxCallPool = 10240
var callPool = mempool.NewPoolEx(
	make(chan mempool.IPoolData, maxCallPool),
	func() mempool.IPoolData {
		return &Call{done: make(chan *Call, 1)}
	})

//Call 一次未完成的调用，注册进PendingStore等响应回来
type Call struct {
	ref      bool
	Seq      uint64      //请求id
	Request  *Request    //发出去的请求
	Reply    interface{} //结果接收对象的指针，codec往里面定向解码
	Response *Response   //收到的响应
	Err      error
	done     chan *Call //完成时往里投递自己
	callTime time.Time
}

/*
   @brief:从池里取一个Call
*/
func NewCall() *Call {
	return callPool.Get().(*Call)
}

/*
   @brief:把完成的Call放回池里
*/
func ReleaseCall(call *Call) {
	callPool.Put(call)
}

func (call *Call) Clear() *Call {
	call.Seq = 0
	call.Request = nil
	call.Reply = nil
	call.Response = nil
	call.Err = nil
	if len(call.done) > 0 {
		call.done = make(chan *Call, 1)
	}
	return call
}

func (call *Call) Reset() {
	call.Clear()
}

func (call *Call) IsRef() bool {
	return call.ref
}

func (call *Call) Ref() {
	call.ref = true
}

func (call *Call) UnRef() {
	call.ref = false
}

/*
   @brief:阻塞等待调用完成
*/
func (call *Call) Done() *Call {
	return <-call.done
}

//完成投递，done有一格缓冲，重复完成时丢弃后来的
func (call *Call) finish() {
	select {
	case call.done <- call:
	default:
	}
}

//PendingStore 未完成调用表，按请求id对响应，超时由定时器兜底
type PendingStore struct {
	lock         sync.RWMutex
	pending      map[uint64]*Call  //seq -> 未完成的call
	pendingTimer map[uint64]uint32 //seq -> 超时定时器id
	timeout      time.Duration
}

/*
    @brief:构造未完成调用表
	@param [in] timeout:单次调用的超时，<=0时用缺省值
*/
func NewPendingStore(timeout time.Duration) *PendingStore {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &PendingStore{
		pending:      map[uint64]*Call{},
		pendingTimer: map[uint64]uint32{},
		timeout:      timeout,
	}
}

/*
    @brief:登记一个未完成的call，同时挂上超时定时器
	@param [in] call:未完成的call
*/
func (store *PendingStore) Register(call *Call) {
	store.lock.Lock()
	call.callTime = time.Now()
	store.pending[call.Seq] = call
	f := jtimer.NewDelayFunc(store.handleCallTimeout, []interface{}{call.Seq})
	timerId, err := jtimer.GlobelTimer.CreateTimerAfter(f, store.timeout, 1, int64(store.timeout/time.Millisecond))
	if err != nil {
		jlog.StdLogger.Errorf("fail to create timeout timer of call %d: %v", call.Seq, err)
	} else {
		store.pendingTimer[call.Seq] = timerId
	}
	store.lock.Unlock()
}

/*
    @brief:取走id对应的call，响应到了或者调用方放弃时调用
	迟到的响应会在这里查不到东西，直接丢弃即可，表里不留任何痕迹
	@param [in] seq:请求id
	@return:取走的call，不存在时为nil
*/
func (store *PendingStore) Take(seq uint64) *Call {
	if seq == 0 {
		return nil
	}
	store.lock.Lock()
	call := store.remove(seq)
	store.lock.Unlock()
	return call
}

/*
    @brief:只看不取，codec解码响应时用它拿call的Reply作为定向解码的目标
	@param [in] seq:请求id
*/
func (store *PendingStore) GetCall(seq uint64) *Call {
	store.lock.RLock()
	call := store.pending[seq]
	store.lock.RUnlock()
	return call
}

/*
    @brief:取消一个未完成的调用，call以取消错误完成
	@param [in] seq:请求id
*/
func (store *PendingStore) Cancel(seq uint64) {
	store.lock.Lock()
	call := store.remove(seq)
	store.lock.Unlock()
	if call != nil {
		call.Err = errors.Errorf("call %d canceled", seq)
		call.finish()
	}
}

/*
   @brief:当前未完成的调用数
*/
func (store *PendingStore) Len() int {
	store.lock.RLock()
	defer store.lock.RUnlock()
	return len(store.pending)
}

//lock已持有
func (store *PendingStore) remove(seq uint64) *Call {
	call, ok := store.pending[seq]
	if !ok {
		return nil
	}
	if timerId, ok := store.pendingTimer[seq]; ok {
		jtimer.GlobelTimer.RomoveTimer(timerId)
		delete(store.pendingTimer, seq)
	}
	delete(store.pending, seq)
	return call
}

//超时定时器触发，call还在表里说明响应一直没来，以超时错误完成它
func (store *PendingStore) handleCallTimeout(v ...interface{}) {
	seq := v[0].(uint64)
	store.lock.Lock()
	call, ok := store.pending[seq]
	if !ok {
		store.lock.Unlock()
		return
	}
	store.remove(seq)
	store.lock.Unlock()
	strTimeout := strconv.FormatInt(int64(store.timeout/time.Second), 10)
	call.Err = errors.New("call takes more than " + strTimeout + " seconds")
	call.finish()
}
