package jtimer

import (
	"sync"
	"time"

	"JDubboFrame/jlog"
)

//默认3个时间轮参数，以毫秒为单位
const (
	HourName     = "HOUR"
	HourInterval = 60 * 60 * 1e3
	HourScales   = 12

	MinuteName     = "MINUTE"
	MinuteInterval = 60 * 1e3
	MinuteScales   = 60

	SecondName     = "SECOND"
	SecondInterval = 1e3
	SecondScales   = 60

	//每个时间轮刻度挂载定时器的最大个数
	TimerMaxCap = 2048
)

//TimeWheel 分层时间轮的一层
type TimeWheel struct {
	name     string //时间轮名字
	interval int64  //刻度间隔(ms)
	scales   int    //每个时间轮上的刻度数
	curIndex int    //当前时间指针的指向
	maxCap   int    //每个刻度的timer容量

	//int是当前时间轮的刻度，内层map是 timerid-timer
	timerQueue    map[int]map[uint32]*Timer
	nextTimeWheel *TimeWheel //下一层时间轮
	sync.RWMutex
}

/*
    @brief:timewheel构造函数
	@param [in] name:时间轮名字
	@param [in] interval:每个刻度大小(ms)
	@param [in] scales:总共刻度数
	@param [in] maxCap:每个刻度所能有的最大定时器个数
*/
func NewTimeWheel(name string, interval int64, scales int, maxCap int) *TimeWheel {
	tw := &TimeWheel{
		name:       name,
		interval:   interval,
		scales:     scales,
		maxCap:     maxCap,
		timerQueue: make(map[int]map[uint32]*Timer, scales),
	}
	for i := 0; i < scales; i++ {
		tw.timerQueue[i] = make(map[uint32]*Timer, maxCap)
	}
	return tw
}

//锁已持有，forceNext表示是否强制移至下一个刻度
func (tw *TimeWheel) addTimer(tID uint32, t *Timer, forceNext bool) {
	defer func() {
		if err := recover(); err != nil {
			jlog.StdLogger.Errorf("addTimer err: %v", err)
		}
	}()

	//当前的超时时间间隔(ms)
	delayInterval := t.unixts - UnixMilli()

	//超时间隔大于一个刻度，挂到对应的刻度上
	if delayInterval >= tw.interval {
		dn := delayInterval / tw.interval
		tw.timerQueue[(tw.curIndex+int(dn))%tw.scales][tID] = t
		return
	}
	//超时间隔小于一个刻度且没有下一层，即刻度最小的时间轮
	if tw.nextTimeWheel == nil {
		//最小的时间轮上，如果刻度已经过去，不强制把定时器移至下一刻度就永远不会被触发
		if forceNext {
			tw.timerQueue[(tw.curIndex+1)%tw.scales][tID] = t
		} else {
			tw.timerQueue[tw.curIndex][tID] = t
		}
		return
	}
	//超时间隔小于一个刻度且有下一层，交给更细的时间轮
	tw.nextTimeWheel.AddTimer(tID, t)
}

/*
    @brief:时间轮添加定时器
	@param [in] tID:定时器id
	@param [in] t:定时器
*/
func (tw *TimeWheel) AddTimer(tID uint32, t *Timer) {
	tw.Lock()
	defer tw.Unlock()
	tw.addTimer(tID, t, false)
}

/*
    @brief:根据定时器id删除定时器
	@param [in] tID:定时器id
*/
func (tw *TimeWheel) RemoveTimer(tID uint32) {
	tw.Lock()
	defer tw.Unlock()

	for i := 0; i < tw.scales; i++ {
		delete(tw.timerQueue[i], tID)
	}
}

/*
    @brief:给时间轮添加下层时间轮
	@param [in] next:下层时间轮
*/
func (tw *TimeWheel) AddTimeWheel(next *TimeWheel) {
	tw.nextTimeWheel = next
}

func (tw *TimeWheel) run() {
	for {
		//时间轮每间隔interval一刻度时间，触发转动一次
		time.Sleep(time.Duration(tw.interval) * time.Millisecond)
		tw.Lock()

		//取出挂载在当前刻度的全部定时器，给当前刻度重新开辟一个容器
		curTimers := tw.timerQueue[tw.curIndex]
		tw.timerQueue[tw.curIndex] = make(map[uint32]*Timer, tw.maxCap)
		for tID, timer := range curTimers {
			//走到该刻度，这些定时器需要移至刻度更小的时间轮
			tw.addTimer(tID, timer, true)
		}

		//当前刻度指针走一格
		tw.curIndex = (tw.curIndex + 1) % tw.scales
		tw.Unlock()
	}
}

/*
   @brief:以异步协程运行时间轮
*/
func (tw *TimeWheel) Run() {
	go tw.run()
}

/*
    @brief:获取duration之内会超时的Timer，多次使用的定时器取走后重新挂回
	@param [in] duration:时间间隔
	@return:满足条件的timer集合
*/
func (tw *TimeWheel) GetTimerWithIn(duration time.Duration) map[uint32]*Timer {
	//最终触发的一定是挂在最底层时间轮上的定时器
	leaftw := tw
	for leaftw.nextTimeWheel != nil {
		leaftw = leaftw.nextTimeWheel
	}

	leaftw.Lock()
	defer leaftw.Unlock()
	timerList := make(map[uint32]*Timer)

	now := UnixMilli()
	for tID, timer := range leaftw.timerQueue[leaftw.curIndex] {
		if timer.unixts-now < int64(duration/1e6) {
			timerList[tID] = timer

			if timer.times == 1 {
				delete(leaftw.timerQueue[leaftw.curIndex], tID)
			} else {
				//多次使用的定时器删除后再添加，times<=0表示不限次数
				times := timer.times
				if times > 1 {
					times--
				}
				newTimer := NewTimerAfter(timer.delayFunc, time.Duration(timer.Interval)*time.Millisecond, times, timer.Interval)
				delete(leaftw.timerQueue[leaftw.curIndex], tID)
				//注意解锁，以免死锁
				leaftw.Unlock()
				tw.AddTimer(tID, newTimer)
				leaftw.Lock()
			}
		}
	}

	return timerList
}
