package jlog

import (
	"os"
)

//StdLogger 全局日志器，输出到控制台
var StdLogger = NewLogger(os.Stdout, "jdubbo", DefaultFlag, LogDebug)

func init() {
	StdLogger.callDepth = 2
}
