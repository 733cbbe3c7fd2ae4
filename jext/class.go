package jext

import (
	"reflect"
	"strings"
	"sync"

	"JDubboFrame/jlog"
)

//Activate 扩展实现的激活元信息，决定GetActivateExtension时是否被隐式选中以及排序
type Activate struct {
	Group  []string //匹配的组；请求的组为空时所有实现都匹配，列表为空的实现只在请求的组为空时匹配
	Value  []string //URL参数键的谓词，URL中存在键key或*.key且值非空时激活
	Order  int      //排序值，越小越靠前
	Before []string //排在这些名字之前
	After  []string //排在这些名字之后
}

//Class 一个扩展实现的登记项，go没有Class.forName，实现方在init中主动登记
//三种角色：New非空且Wrap为空是普通实现；Wrap非空是wrapper；Adaptive为true是作者提供的自适应实现
type Class struct {
	Type     reflect.Type                  //实现的具体类型(结构体类型，不带指针)
	New      func() interface{}            //无参构造函数
	Wrap     func(interface{}) interface{} //单参构造函数，参数是扩展点类型的实例
	Adaptive bool                          //是否是作者提供的自适应实现
	ExtName  string                        //登记时附带的扩展名，优先于从类型名推导
	Activate *Activate                     //激活元信息
}

var (
	classesLock sync.RWMutex
	classes     = map[string]*Class{}
)

/*
    @brief:计算类型的全限定标识，包路径中的'/'替换成'.'，用作描述符文件名和实现引用
	@param [in] t:类型
	@return:形如 JDubboFrame.jserializer.ISerializer 的标识
*/
func TypeID(t reflect.Type) string {
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	pkg := strings.ReplaceAll(t.PkgPath(), "/", ".")
	if pkg == "" {
		return t.Name()
	}
	return pkg + "." + t.Name()
}

/*
    @brief:登记一个扩展实现，一般在实现包的init中调用
	同一个引用重复登记不同的类型是致命错误，进程内 (扩展点,名字) 只允许对应一个实现
	@param [in] class:实现的登记项
*/
func RegisterClass(class Class) {
	if class.Type == nil {
		jlog.StdLogger.Panic("RegisterClass: class.Type == nil")
	}
	if class.New == nil && class.Wrap == nil {
		jlog.StdLogger.Panicf("RegisterClass: class %s has no constructor", class.Type.String())
	}
	ref := TypeID(class.Type)
	classesLock.Lock()
	defer classesLock.Unlock()
	if old, ok := classes[ref]; ok && old.Type != class.Type {
		jlog.StdLogger.Panicf("RegisterClass: ref %s already registered by %s", ref, old.Type.String())
	}
	c := class
	classes[ref] = &c
}

/*
    @brief:按引用查找登记的实现
	@param [in] ref:全限定引用
	@return:登记项，没有时为nil
*/
func findClass(ref string) *Class {
	classesLock.RLock()
	defer classesLock.RUnlock()
	return classes[ref]
}

/*
   @brief:判断登记项的实例是否满足扩展点接口
*/
func (c *Class) implementsPoint(point reflect.Type) bool {
	if c.Type.Implements(point) {
		return true
	}
	return reflect.PtrTo(c.Type).Implements(point)
}
