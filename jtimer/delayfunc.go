package jtimer

import (
	"fmt"
	"reflect"
	"runtime"

	"JDubboFrame/jlog"
)

//DelayFunc 定时器超时时触发的延迟调用函数
type DelayFunc struct {
	f    func(...interface{}) //延迟函数原型
	args []interface{}        //延迟调用传递的形参
}

/*
    @brief:创建一个延迟调用函数
	@param [in] f:函数
	@param [in] args:形参
*/
func NewDelayFunc(f func(v ...interface{}), args []interface{}) *DelayFunc {
	return &DelayFunc{
		f:    f,
		args: args,
	}
}

/*
   @brief:打印当前延迟函数的信息，用于日志记录
*/
func (df *DelayFunc) String() string {
	return fmt.Sprintf("{DelayFunc:%s, args:%v}", reflect.TypeOf(df.f).String(), df.args)
}

/*
   @brief:执行延迟函数，panic时打出堆栈
*/
func (df *DelayFunc) Call() {
	defer func() {
		if err := recover(); err != nil {
			buf := make([]byte, 4096)
			l := runtime.Stack(buf, false)
			jlog.StdLogger.Error(df.String(), " core dump info[", fmt.Sprint(err), "]\n", string(buf[:l]))
		}
	}()

	df.f(df.args...)
}
