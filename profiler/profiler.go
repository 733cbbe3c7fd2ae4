package profiler

import (
	"container/list"
	"sync"
	"time"
)

//最大超长时间，一般可以认为是死锁、死循环或者极差的性能问题
var DefaultMaxOvertime = 5 * time.Second

//超过该时间将会被记入监控报告
var DefaultOvertime = 10 * time.Millisecond

//最大记录条数
var DefaultMaxRecordNum = 100

//报告类型
type RecordType int

const (
	MaxOvertimeType RecordType = 1
	OvertimeType    RecordType = 2
)

//Element 一次被监测的执行
type Element struct {
	tagName  string
	pushTime time.Time
}

//Record 监测记录
type Record struct {
	RType      RecordType
	CostTime   time.Duration
	RecordName string
}

//Profiler 监测器，Push进一个标签开始计时，Pop时超长的执行被记录下来
type Profiler struct {
	stack       *list.List //保存正在监测的元素
	stackLocker sync.RWMutex
	record      *list.List //保存监测记录

	maxOverTime  time.Duration //最大超长时间
	overTime     time.Duration //超过该时间会被记录
	maxRecordNum int           //最大记录条数

	callNum       int           //调用次数
	totalCostTime time.Duration //总耗时
}

//Analyzer 一次监测的分析器，Pop结束监测
type Analyzer struct {
	elem     *list.Element
	profiler *Profiler
}

/*
   @brief:监测器构造函数
*/
func NewProfiler() *Profiler {
	return &Profiler{
		stack:        list.New(),
		record:       list.New(),
		maxOverTime:  DefaultMaxOvertime,
		overTime:     DefaultOvertime,
		maxRecordNum: DefaultMaxRecordNum,
	}
}

/*
    @brief:压入需要监测的信息
	@param [in] tag:监测标签
	@return:该次监测对应的分析器
*/
func (p *Profiler) Push(tag string) *Analyzer {
	p.stackLocker.Lock()
	defer p.stackLocker.Unlock()

	pElem := p.stack.PushBack(&Element{tagName: tag, pushTime: time.Now()})
	return &Analyzer{elem: pElem, profiler: p}
}

/*
   @brief:结束监测，超长的执行作为record保存在profiler中
*/
func (a *Analyzer) Pop() {
	a.profiler.stackLocker.Lock()
	defer a.profiler.stackLocker.Unlock()

	pElement := a.elem.Value.(*Element)
	record, costTime := a.profiler.check(pElement)
	a.profiler.callNum++
	a.profiler.totalCostTime += costTime
	if record != nil {
		a.profiler.pushRecordLog(record)
	}
	a.profiler.stack.Remove(a.elem)
}

/*
    @brief:检查一次执行是否需要记录
	@param [in] pElem:被检查的执行
	@return:监测记录(不需要记录时为nil)，执行耗时
*/
func (p *Profiler) check(pElem *Element) (*Record, time.Duration) {
	if pElem == nil {
		return nil, 0
	}

	costTime := time.Since(pElem.pushTime)
	//低于报告阈值的不记录
	if costTime < p.overTime {
		return nil, costTime
	}

	record := &Record{
		RType:      OvertimeType,
		CostTime:   costTime,
		RecordName: pElem.tagName,
	}
	if costTime > p.maxOverTime {
		record.RType = MaxOvertimeType
	}
	return record, costTime
}

//stackLocker已持有
func (p *Profiler) pushRecordLog(record *Record) {
	if p.record.Len() >= p.maxRecordNum {
		if front := p.record.Front(); front != nil {
			p.record.Remove(front)
		}
	}
	p.record.PushBack(record)
}

func (p *Profiler) SetMaxOverTime(tm time.Duration) {
	p.maxOverTime = tm
}

func (p *Profiler) SetOverTime(tm time.Duration) {
	p.overTime = tm
}

func (p *Profiler) SetMaxRecordNum(num int) {
	p.maxRecordNum = num
}
