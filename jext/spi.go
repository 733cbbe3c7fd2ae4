package jext

import (
	"reflect"
	"strings"
	"sync"

	"JDubboFrame/jlog"
)

//AdaptiveMethod 扩展点上一个可自适应分发的方法
type AdaptiveMethod struct {
	Name string   //方法名
	Keys []string //URL参数键的查找序列，空时从扩展点类型名推导
}

//SPI 扩展点的声明，扩展点接口的定义包在init中登记
type SPI struct {
	Type        reflect.Type                          //扩展点接口类型
	Default     string                                //缺省实现名，空表示没有缺省
	Methods     []AdaptiveMethod                      //自适应方法表
	NewAdaptive func(ctx *AdaptiveContext) interface{} //自适应模板，合成器用它把键查找计划装配成扩展点实例
}

var (
	spiLock sync.RWMutex
	spis    = map[reflect.Type]*SPI{}
)

/*
    @brief:取出接口指针指向的接口类型，jext.TypeOf((*ISerializer)(nil))
	@param [in] ptr:指向接口的空指针
	@return:接口类型
*/
func TypeOf(ptr interface{}) reflect.Type {
	t := reflect.TypeOf(ptr)
	if t == nil || t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Interface {
		jlog.StdLogger.Panicf("TypeOf: want pointer to interface, got %v", t)
	}
	return t.Elem()
}

/*
    @brief:登记一个扩展点，缺省名只允许一个，声明多个是致命错误
	@param [in] spi:扩展点声明
*/
func RegisterSPI(spi SPI) {
	if spi.Type == nil || spi.Type.Kind() != reflect.Interface {
		jlog.StdLogger.Panicf("RegisterSPI: extension type(%v) is not interface", spi.Type)
	}
	if strings.Contains(spi.Default, ",") {
		jlog.StdLogger.Panicf("RegisterSPI: more than 1 default extension name on extension %s: %s",
			TypeID(spi.Type), spi.Default)
	}
	spiLock.Lock()
	defer spiLock.Unlock()
	if _, ok := spis[spi.Type]; ok {
		jlog.StdLogger.Panicf("RegisterSPI: extension %s already registered", TypeID(spi.Type))
	}
	s := spi
	spis[spi.Type] = &s
}

/*
   @brief:类型是否是已声明的扩展点
*/
func isExtensionPoint(t reflect.Type) bool {
	spiLock.RLock()
	defer spiLock.RUnlock()
	_, ok := spis[t]
	return ok
}

func getSPI(t reflect.Type) *SPI {
	spiLock.RLock()
	defer spiLock.RUnlock()
	return spis[t]
}
