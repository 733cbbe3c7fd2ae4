package mempool

import (
	"sync"
)

//IPoolData 特化内存池里保存的数据，带引用标记防止重复取放
type IPoolData interface {
	Reset()
	IsRef() bool
	Ref()
	UnRef()
}

//Pool 通用内存池，channel做热缓存，syncPool兜底
type Pool struct {
	C        chan interface{}
	syncPool sync.Pool
}

//PoolEx 特化内存池，保存实现了IPoolData的数据
type PoolEx struct {
	C        chan IPoolData
	syncPool sync.Pool
}

/*
    @brief:生成一个通用内存池
	@param [in] C:缓存区
	@param [in] New:池为空时生成数据的函数
*/
func NewPool(C chan interface{}, New func() interface{}) *Pool {
	p := &Pool{C: C}
	p.syncPool.New = New
	return p
}

/*
   @brief:从内存池中取一个数据
*/
func (pool *Pool) Get() interface{} {
	select {
	case d := <-pool.C:
		return d
	default:
		//缓存为空，从syncPool里拿
		return pool.syncPool.Get()
	}
}

/*
   @brief:回收一个数据
*/
func (pool *Pool) Put(data interface{}) {
	select {
	case pool.C <- data:
	default:
		pool.syncPool.Put(data)
	}
}

/*
    @brief:生成一个特化内存池
	@param [in] C:缓存区
	@param [in] New:池为空时生成数据的函数
*/
func NewPoolEx(C chan IPoolData, New func() IPoolData) *PoolEx {
	pool := &PoolEx{C: C}
	pool.syncPool.New = func() interface{} {
		return New()
	}
	return pool
}

/*
   @brief:从内存池中取一个数据，取出即标记引用
*/
func (pool *PoolEx) Get() IPoolData {
	var data IPoolData
	select {
	case d := <-pool.C:
		data = d
	default:
		data = pool.syncPool.Get().(IPoolData)
	}
	if data.IsRef() {
		panic("pool data is in use")
	}
	data.Ref()
	return data
}

/*
   @brief:回收一个数据，重复回收直接panic
*/
func (pool *PoolEx) Put(data IPoolData) {
	if !data.IsRef() {
		panic("repeatedly freeing memory")
	}
	//提前解引用，防止递归释放
	data.UnRef()
	data.Reset()
	//再次解引用，防止Reset时错误标记
	data.UnRef()
	select {
	case pool.C <- data:
	default:
		pool.syncPool.Put(data)
	}
}
