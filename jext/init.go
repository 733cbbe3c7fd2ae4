package jext

import (
	"embed"
	"reflect"
)

//go:embed META-INF
var descriptorFS embed.FS

//引导用的两个扩展点类型
var (
	extensionFactoryType = TypeOf((*IExtensionFactory)(nil))
	compilerType         = TypeOf((*ICompiler)(nil))
)

func init() {
	AddProviderFS(descriptorFS)

	//工厂和合成器是扩展点机制自己的两个扩展点，它们的自适应实现都是现成的代码
	RegisterSPI(SPI{Type: extensionFactoryType})
	RegisterSPI(SPI{Type: compilerType, Default: "plan"})

	RegisterClass(Class{
		Type: reflect.TypeOf(SpiExtensionFactory{}),
		New:  func() interface{} { return &SpiExtensionFactory{} },
	})
	RegisterClass(Class{
		Type:     reflect.TypeOf(AdaptiveExtensionFactory{}),
		New:      func() interface{} { return newAdaptiveExtensionFactory() },
		Adaptive: true,
	})
	RegisterClass(Class{
		Type: reflect.TypeOf(PlanCompiler{}),
		New:  func() interface{} { return &PlanCompiler{} },
	})
	RegisterClass(Class{
		Type:     reflect.TypeOf(AdaptiveCompiler{}),
		New:      func() interface{} { return &AdaptiveCompiler{} },
		Adaptive: true,
	})
}
