package jtimer

import (
	"math"
	"sync"
	"time"

	"JDubboFrame/jlog"
)

const (
	MaxChanBuff  = 2048 //默认缓冲触发函数队列大小
	MaxTimeDelay = 100  //默认最大误差时间(ms)
)

//GlobelTimer 全局定时器
var GlobelTimer *TimerScheduler

func init() {
	GlobelTimer = NewAutoTimerScheduler()
}

//TimerScheduler 计时器调度器，挂在三层时间轮上
type TimerScheduler struct {
	tw           *TimeWheel      //当前调度器的最高级时间轮
	IdGen        uint32          //定时器编号累加器
	triggerChan  chan *DelayFunc //已经触发的定时器的channel
	sync.RWMutex
}

/*
   @brief:TimerScheduler的构造函数
*/
func NewTimerScheduler() *TimerScheduler {
	secondTw := NewTimeWheel(SecondName, SecondInterval, SecondScales, TimerMaxCap)
	minuteTw := NewTimeWheel(MinuteName, MinuteInterval, MinuteScales, TimerMaxCap)
	hourTw := NewTimeWheel(HourName, HourInterval, HourScales, TimerMaxCap)

	//将分层时间轮做关联
	hourTw.AddTimeWheel(minuteTw)
	minuteTw.AddTimeWheel(secondTw)

	secondTw.Run()
	minuteTw.Run()
	hourTw.Run()

	return &TimerScheduler{
		tw:          hourTw,
		triggerChan: make(chan *DelayFunc, MaxChanBuff),
	}
}

/*
    @brief:加入一个定点触发的timer
	@param [in] df:延迟调用函数
	@param [in] unixNano:触发时间点，unix纳秒
	@return:timer的id
*/
func (ts *TimerScheduler) CreateTimerAt(df *DelayFunc, unixNano int64) (uint32, error) {
	ts.Lock()
	defer ts.Unlock()

	ts.IdGen++
	ts.tw.AddTimer(ts.IdGen, NewTimerAt(df, unixNano))
	return ts.IdGen, nil
}

/*
    @brief:加入一个延迟触发的timer
	@param [in] df:延迟调用函数
	@param [in] duration:延迟时间段
	@param [in] times:定时器使用次数，<=0表示不限次数
	@param [in] interval:多次使用时每次的间隔(ms)
	@return:timer的id
*/
func (ts *TimerScheduler) CreateTimerAfter(df *DelayFunc, duration time.Duration, times int, interval int64) (uint32, error) {
	ts.Lock()
	defer ts.Unlock()

	ts.IdGen++
	ts.tw.AddTimer(ts.IdGen, NewTimerAfter(df, duration, times, interval))
	return ts.IdGen, nil
}

/*
    @brief:移除timer
	@param [in] tID:需要移除的timer id
*/
func (ts *TimerScheduler) RomoveTimer(tID uint32) {
	ts.Lock()
	defer ts.Unlock()
	tw := ts.tw
	for tw != nil {
		tw.RemoveTimer(tID)
		tw = tw.nextTimeWheel
	}
}

/*
   @brief:获取计时结束的延迟执行函数通道
*/
func (ts *TimerScheduler) GetTriggerChan() chan *DelayFunc {
	return ts.triggerChan
}

/*
   @brief:非阻塞的方式启动timerScheduler
*/
func (ts *TimerScheduler) Start() {
	go func() {
		for {
			now := UnixMilli()

			//获取最近MaxTimeDelay毫秒内超时的定时器集合
			timerList := ts.tw.GetTimerWithIn(MaxTimeDelay * time.Millisecond)
			for _, timer := range timerList {
				if math.Abs(float64(now-timer.unixts)) > MaxTimeDelay {
					//定时器未在规定的时间内触发
					jlog.StdLogger.Debug("want call at ", timer.unixts, "; real call at ", now, "; delay ", now-timer.unixts)
				}
				ts.triggerChan <- timer.delayFunc
			}

			time.Sleep(MaxTimeDelay / 2 * time.Millisecond)
		}
	}()
}

/*
    @brief:生成一个自动调度的时间轮调度器，超时触发的函数在独立协程里执行
	@return:创建的时间轮调度器
*/
func NewAutoTimerScheduler() *TimerScheduler {
	autoScheduler := NewTimerScheduler()
	autoScheduler.Start()

	//从调度器中获取超时触发的函数并执行
	go func() {
		for df := range autoScheduler.GetTriggerChan() {
			go df.Call()
		}
	}()
	return autoScheduler
}
