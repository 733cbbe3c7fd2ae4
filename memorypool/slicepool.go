package mempool

import (
	"sync"
)

//SlicePool 切片内存池，按长度分桶
//每个桶保存一种长度的[]byte，第i个桶的长度是minAreaValue-1+(i+1)*growthValue
type SlicePool struct {
	minAreaValue int //切片最小范围值
	maxAreaValue int //切片最大范围值
	growthValue  int //桶之间的长度增量
	pool         []sync.Pool
}

//SlicePoolList slicepool集合，覆盖更大的长度范围
type SlicePoolList struct {
	poolNum  int
	PoolList []*SlicePool
}

/*
    @brief:构造slicepool集合
	@param [in] poolNum:SlicePool的数量
	@param [in] args:各档SlicePool，按maxAreaValue从小到大排
*/
func NewSlicePoolList(poolNum int, args ...*SlicePool) *SlicePoolList {
	s := &SlicePoolList{
		poolNum:  poolNum,
		PoolList: make([]*SlicePool, poolNum),
	}
	for i := 0; i < len(args) && i < poolNum; i++ {
		s.PoolList[i] = args[i]
	}
	return s
}

/*
    @brief:构造一档切片内存池
	@param [in] minAreaValue:切片最小范围值
	@param [in] maxAreaValue:切片最大范围值
	@param [in] growthValue:桶之间的长度增量
*/
func NewSlicePool(minAreaValue int, maxAreaValue int, growthValue int) *SlicePool {
	areaPool := &SlicePool{
		minAreaValue: minAreaValue,
		maxAreaValue: maxAreaValue,
		growthValue:  growthValue,
	}
	poolLen := (areaPool.maxAreaValue - areaPool.minAreaValue + 1) / areaPool.growthValue
	areaPool.pool = make([]sync.Pool, poolLen)
	for i := 0; i < poolLen; i++ {
		//每个桶存放一种长度的[]byte
		memSize := (areaPool.minAreaValue - 1) + (i+1)*areaPool.growthValue
		areaPool.pool[i] = sync.Pool{New: func() interface{} {
			return make([]byte, memSize)
		}}
	}
	return areaPool
}

/*
    @brief:从池列表中取出一个长度为size的[]byte切片，超出覆盖范围时直接分配
	@param [in] size:切片长度
*/
func (s *SlicePoolList) MakeByteSlice(size int) []byte {
	for i := 0; i < s.poolNum; i++ {
		if size <= s.PoolList[i].maxAreaValue {
			if b := s.PoolList[i].makeByteSlice(size); b != nil {
				return b
			}
			break
		}
	}
	return make([]byte, size)
}

/*
    @brief:释放[]byte切片回池，不属于任何一档的直接交给gc
	@param [in] byteBuff:需要释放的切片
	@return:是否放回了池里
*/
func (s *SlicePoolList) ReleaseByteSlice(byteBuff []byte) bool {
	for i := 0; i < s.poolNum; i++ {
		if cap(byteBuff) <= s.PoolList[i].maxAreaValue {
			return s.PoolList[i].releaseByteSlice(byteBuff)
		}
	}
	return false
}

func (areaPool *SlicePool) makeByteSlice(size int) []byte {
	pos := areaPool.getPosBySize(size)
	if pos == -1 {
		return nil
	}
	return areaPool.pool[pos].Get().([]byte)[:size]
}

func (areaPool *SlicePool) getPosBySize(size int) int {
	if size < areaPool.minAreaValue {
		return 0
	}
	pos := (size - areaPool.minAreaValue) / areaPool.growthValue
	if pos >= len(areaPool.pool) {
		return -1
	}
	return pos
}

func (areaPool *SlicePool) releaseByteSlice(byteBuff []byte) bool {
	pos := areaPool.getPosBySize(cap(byteBuff))
	if pos == -1 {
		return false
	}
	areaPool.pool[pos].Put(byteBuff[:cap(byteBuff)])
	return true
}
