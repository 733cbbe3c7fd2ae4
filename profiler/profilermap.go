package profiler

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"JDubboFrame/jlog"
)

var (
	profilerLocker sync.RWMutex
	mapProfiler    = map[string]*Profiler{}
)

/*
    @brief:注册一个profiler，同名的返回已有的那个
	@param [in] profilerName:监测器名字
*/
func RegProfiler(profilerName string) *Profiler {
	profilerLocker.Lock()
	defer profilerLocker.Unlock()
	if p, ok := mapProfiler[profilerName]; ok {
		return p
	}

	p := NewProfiler()
	mapProfiler[profilerName] = p
	return p
}

/*
    @brief:按名字取已注册的profiler
	@param [in] profilerName:监测器名字
*/
func GetProfiler(profilerName string) *Profiler {
	profilerLocker.RLock()
	defer profilerLocker.RUnlock()
	return mapProfiler[profilerName]
}

/*
   @brief:汇总所有监测器的记录并输出报告，记录随之清空
*/
func Report() {
	profilerLocker.RLock()
	profilers := make(map[string]*Profiler, len(mapProfiler))
	for name, p := range mapProfiler {
		profilers[name] = p
	}
	profilerLocker.RUnlock()

	for name, prof := range profilers {
		prof.stackLocker.Lock()

		//还在栈里的执行，超长的也先记一笔
		pElem := prof.stack.Back()
		for pElem != nil {
			if record, _ := prof.check(pElem.Value.(*Element)); record != nil {
				prof.pushRecordLog(record)
			}
			pElem = pElem.Prev()
		}

		if prof.record.Len() == 0 {
			prof.stackLocker.Unlock()
			continue
		}

		record := prof.record
		prof.record = list.New()
		callNum := prof.callNum
		costTime := prof.totalCostTime
		prof.stackLocker.Unlock()

		DefaultReportFunction(name, callNum, costTime, record)
	}
}

/*
   @brief:缺省的报告输出，落到日志里
*/
func DefaultReportFunction(name string, callNum int, costTime time.Duration, record *list.List) {
	if record.Len() <= 0 {
		return
	}

	strReport := "Profiler report tag " + name + ":\n"
	var average int64
	if callNum > 0 {
		average = costTime.Milliseconds() / int64(callNum)
	}
	strReport += fmt.Sprintf("process count %d,take time %d Milliseconds,average %d Milliseconds/per.\n",
		callNum, costTime.Milliseconds(), average)

	elem := record.Front()
	for elem != nil {
		pRecord := elem.Value.(*Record)
		strTypes := "slow process"
		if pRecord.RType == MaxOvertimeType {
			strTypes = "too slow process"
		}
		strReport += fmt.Sprintf("%s:%s is take %d Milliseconds\n",
			strTypes, pRecord.RecordName, pRecord.CostTime.Milliseconds())
		elem = elem.Next()
	}

	jlog.StdLogger.Info(strReport)
}
