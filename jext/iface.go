package jext

import (
	"reflect"
)

//IExtensionFactory 扩展对象工厂，注入时按照(类型,属性名)查找被注入的对象
type IExtensionFactory interface {
	GetExtension(t reflect.Type, name string) interface{}
}

//ICompiler 自适应扩展的合成器，根据扩展点上登记的方法计划生成自适应实例
type ICompiler interface {
	Compile(loader *ExtensionLoader) (interface{}, error)
}

//IInvocation 一次方法调用的描述，自适应分发时用于方法级参数的查找
type IInvocation interface {
	GetMethodName() string
}
