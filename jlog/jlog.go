package jlog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"sync"
	"time"
)

const (
	LOG_MAX_BUF = 1024 * 1024
)

//日志头部信息标记位，采用bitmap方式，用户可以选择头部需要哪些标记位被打印
const (
	Date         = 1 << iota //日期标记位 2019/01/23
	Time                     //时间标记位 01:23:12
	MicroSeconds             //微秒级标记位 01:23:12.111222
	LongFile                 //完整文件名称 /home/go/src/jdubbo/server.go
	ShortFile                //最后文件名 server.go
	LogLevel                 //当前日志级别

	StdFlag     = Date | Time                    //标准头部日志格式
	DefaultFlag = LogLevel | ShortFile | StdFlag //默认日志头部格式
)

//日志等级
const (
	LogDebug = iota
	LogInfo
	LogWarn
	LogError
	LogPanic
	LogFatal
)

//日志级别对应的显示字符串
var levels = []string{
	"[DEBUG]",
	"[INFO]",
	"[WARN]",
	"[ERROR]",
	"[PANIC]",
	"[FATAL]",
}

//Logger 日志类
type Logger struct {
	mu         sync.Mutex   //确保多协程读写文件
	prefix     string       //日志前缀
	flag       int          //日志头部信息标记位
	out        io.Writer    //日志输出的io
	buf        bytes.Buffer //输出的缓冲区
	outFile    *os.File     //当前日志绑定的输出文件
	debugClose bool         //是否关闭debug信息
	callDepth  int
	level      int //日志器等级，低于该等级的日志不输出
}

/*
    @brief:创建一个日志类
	@param [in] out:日志输出的io
	@param [in] prefix:日志前缀
	@param [in] flag:日志头部标记位
	@param [in] level:日志等级
*/
func NewLogger(out io.Writer, prefix string, flag int, level int) *Logger {
	//callDepth为2，Logger对象的日志打印方法最多经过两层调用到达output
	return &Logger{
		out:       out,
		prefix:    prefix,
		flag:      flag,
		callDepth: 2,
		level:     level,
	}
}

/*
   @brief:回收日志处理
*/
func CleanJLogger(log *Logger) {
	log.closeFile()
}

//日志头格式化，header="<"+prefix+">"+time+logLevel+filename
func (log *Logger) formatHeader(t time.Time, file string, line int, level int) {
	buf := &log.buf
	if log.prefix != "" {
		buf.WriteByte('<')
		buf.WriteString(log.prefix)
		buf.WriteByte('>')
	}
	if log.flag&(Date|Time|MicroSeconds) != 0 {
		if log.flag&Date != 0 {
			year, month, day := t.Date()
			buf.WriteString(strconv.Itoa(year) + "/")
			buf.WriteString(strconv.Itoa(int(month)) + "/")
			buf.WriteString(strconv.Itoa(day))
			buf.WriteByte(' ')
		}
		if log.flag&(Time|MicroSeconds) != 0 {
			hour, min, sec := t.Clock()
			buf.WriteString(strconv.Itoa(hour) + ":")
			buf.WriteString(strconv.Itoa(min) + ":")
			buf.WriteString(strconv.Itoa(sec))
			if log.flag&MicroSeconds != 0 {
				buf.WriteByte('.')
				buf.WriteString(strconv.Itoa(t.Nanosecond() / 1e3))
			}
			buf.WriteByte(' ')
		}
	}
	if log.flag&LogLevel != 0 {
		buf.WriteString(levels[level])
	}
	if log.flag&(ShortFile|LongFile) != 0 {
		if log.flag&ShortFile != 0 {
			//取最后一个'/'之后的文件名称，如/home/go/src/jdubbo.go得到jdubbo.go
			for i := len(file) - 1; i > 0; i-- {
				if file[i] == '/' {
					file = file[i+1:]
					break
				}
			}
		}
		buf.WriteString(file)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(line))
		buf.WriteString(": ")
	}
}

/*
    @brief:日志(header+s)输出到log.out中
	@param [in] level:日志等级
	@param [in] s:日志具体内容
*/
func (log *Logger) OutPut(level int, s string) error {
	if level < log.level {
		return nil
	}
	now := time.Now()
	//得到当前调用者的文件名称和执行到的代码行数
	_, file, line, ok := runtime.Caller(log.callDepth)
	if !ok {
		file = "unknown-file"
		line = 0
	}
	log.mu.Lock()
	defer log.mu.Unlock()

	log.buf.Reset()
	log.formatHeader(now, file, line, level)
	log.buf.WriteString(s)
	//补充回车
	if len(s) > 0 && s[len(s)-1] != '\n' {
		log.buf.WriteByte('\n')
	}

	if log.out != nil {
		if _, err := log.out.Write(log.buf.Bytes()); err != nil {
			return err
		}
	}
	if log.outFile != nil {
		if _, err := log.outFile.Write(log.buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

// ====> Debug <====
func (log *Logger) Debugf(format string, v ...interface{}) {
	if log.debugClose {
		return
	}
	_ = log.OutPut(LogDebug, fmt.Sprintf(format, v...))
}

func (log *Logger) Debug(v ...interface{}) {
	if log.debugClose {
		return
	}
	_ = log.OutPut(LogDebug, fmt.Sprintln(v...))
}

// ====> Info <====
func (log *Logger) Infof(format string, v ...interface{}) {
	_ = log.OutPut(LogInfo, fmt.Sprintf(format, v...))
}

func (log *Logger) Info(v ...interface{}) {
	_ = log.OutPut(LogInfo, fmt.Sprintln(v...))
}

// ====> Warn <====
func (log *Logger) Warnf(format string, v ...interface{}) {
	_ = log.OutPut(LogWarn, fmt.Sprintf(format, v...))
}

func (log *Logger) Warn(v ...interface{}) {
	_ = log.OutPut(LogWarn, fmt.Sprintln(v...))
}

// ====> Error <====
func (log *Logger) Errorf(format string, v ...interface{}) {
	_ = log.OutPut(LogError, fmt.Sprintf(format, v...))
}

func (log *Logger) Error(v ...interface{}) {
	_ = log.OutPut(LogError, fmt.Sprintln(v...))
}

// ====> Fatal 需要终止程序 <====
func (log *Logger) Fatalf(format string, v ...interface{}) {
	_ = log.OutPut(LogFatal, fmt.Sprintf(format, v...))
	os.Exit(1)
}

func (log *Logger) Fatal(v ...interface{}) {
	_ = log.OutPut(LogFatal, fmt.Sprintln(v...))
	os.Exit(1)
}

// ====> Panic <====
func (log *Logger) Panicf(format string, v ...interface{}) {
	s := fmt.Sprintf(format, v...)
	_ = log.OutPut(LogPanic, s)
	panic(s)
}

func (log *Logger) Panic(v ...interface{}) {
	s := fmt.Sprintln(v...)
	_ = log.OutPut(LogPanic, s)
	panic(s)
}

func (log *Logger) CloseDebug() {
	log.debugClose = true
}

func (log *Logger) OpenDebug() {
	log.debugClose = false
}

/*
    @brief:将当前堆栈信息和日志一起输出
	@param [in] v:日志具体内容
*/
func (log *Logger) Stack(v ...interface{}) {
	s := fmt.Sprint(v...)
	s += "\n"
	buf := make([]byte, LOG_MAX_BUF)
	n := runtime.Stack(buf, true)
	s += string(buf[:n])
	s += "\n"
	_ = log.OutPut(LogError, s)
}

/*
   @brief:获取当前日志flag
*/
func (log *Logger) Flags() int {
	log.mu.Lock()
	defer log.mu.Unlock()
	return log.flag
}

/*
    @brief:重置当前日志flag
	@param [in] flag:flag
*/
func (log *Logger) ResetFlags(flag int) {
	log.mu.Lock()
	defer log.mu.Unlock()
	log.flag = flag
}

/*
    @brief:添加日志flag
	@param [in] flag:flag
*/
func (log *Logger) AddFlag(flag int) {
	log.mu.Lock()
	defer log.mu.Unlock()
	log.flag |= flag
}

/*
    @brief:设置日志等级
	@param [in] level:日志等级
*/
func (log *Logger) SetLevel(level int) {
	log.mu.Lock()
	defer log.mu.Unlock()
	log.level = level
}

/*
    @brief:设置日志前缀
	@param [in] prefix:prefix
*/
func (log *Logger) SetPrefix(prefix string) {
	log.mu.Lock()
	defer log.mu.Unlock()
	log.prefix = prefix
}

/*
    @brief:设置日志输出文件
	@param [in] fileDir:文件的路径
	@param [in] fileName:文件名字
*/
func (log *Logger) SetLogFile(fileDir string, fileName string) error {
	if err := mkdirLog(fileDir); err != nil {
		return err
	}
	fullPath := fileDir + "/" + fileName
	file, err := os.OpenFile(fullPath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	log.mu.Lock()
	defer log.mu.Unlock()

	//关闭之前绑定的文件
	log.closeFile()
	log.outFile = file
	return nil
}

/*
   @brief:关闭日志绑定的文件
*/
func (log *Logger) closeFile() {
	if log.outFile != nil {
		_ = log.outFile.Close()
		log.outFile = nil
		log.out = os.Stderr
	}
}

/*
    @brief:设置输出流
	@param [in] out:设置的输出流
*/
func (log *Logger) SetOutPut(out io.Writer) {
	log.mu.Lock()
	defer log.mu.Unlock()
	log.out = out
}

//如果日志目录不存在就创建
func mkdirLog(dir string) error {
	if _, err := os.Stat(dir); err == nil || os.IsExist(err) {
		return nil
	}
	if err := os.MkdirAll(dir, 0775); err != nil && os.IsPermission(err) {
		return err
	}
	return nil
}
