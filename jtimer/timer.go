package jtimer

import (
	"time"
)

//Timer 定时器
type Timer struct {
	delayFunc *DelayFunc //超时触发的延迟调用函数
	unixts    int64      //触发时间(unix时间，单位ms)

	Interval int64 //多次使用定时器时每次的间隔(ms)
	times    int   //定时器使用次数，<=0表示不限次数
}

/*
   @brief:返回1970-1-1至今经历的毫秒数
*/
func UnixMilli() int64 {
	return time.Now().UnixNano() / 1e6
}

/*
    @brief:创建一个在指定时间触发的定时器
	@param [in] df:延迟调用函数
	@param [in] unixNano:触发时间，unix纳秒
*/
func NewTimerAt(df *DelayFunc, unixNano int64) *Timer {
	return &Timer{
		delayFunc: df,
		unixts:    unixNano / 1e6, //定时器以ms为最小精度
		Interval:  0,
		times:     1,
	}
}

/*
    @brief:创建一个延迟duration之后触发的定时器
	@param [in] df:延迟调用函数
	@param [in] duration:延迟时间
	@param [in] times:定时器使用次数，<=0表示不限次数
	@param [in] interval:多次使用时每次的间隔(ms)
*/
func NewTimerAfter(df *DelayFunc, duration time.Duration, times int, interval int64) *Timer {
	t := NewTimerAt(df, time.Now().UnixNano()+int64(duration))
	t.SetTimes(times)
	t.SetInterval(interval)
	return t
}

/*
   @brief:设置定时器循环调用的次数
*/
func (t *Timer) SetTimes(times int) {
	t.times = times
}

/*
   @brief:设置定时器每次的间隔(ms)
*/
func (t *Timer) SetInterval(interval int64) {
	t.Interval = interval
}

/*
   @brief:启动定时器，用一个协程承载
*/
func (t *Timer) Run() {
	go func() {
		now := UnixMilli()
		if t.unixts > now {
			//睡眠至触发时间
			time.Sleep(time.Duration(t.unixts-now) * time.Millisecond)
		}
		t.delayFunc.Call()
	}()
}
