package jext

import (
	"reflect"

	"JDubboFrame/jlog"
)

//SpiExtensionFactory 按类型查找扩展点的自适应实例，注入时的标准工厂
type SpiExtensionFactory struct {
}

func (factory *SpiExtensionFactory) GetExtension(t reflect.Type, name string) interface{} {
	if t == nil || t.Kind() != reflect.Interface || !isExtensionPoint(t) {
		return nil
	}
	loader := GetExtensionLoader(t)
	if len(loader.GetSupportedExtensions()) == 0 {
		return nil
	}
	adaptive, err := loader.GetAdaptiveExtension()
	if err != nil {
		jlog.StdLogger.Warnf("SpiExtensionFactory: fail to get adaptive extension of %s: %v", TypeID(t), err)
		return nil
	}
	return adaptive
}

//AdaptiveExtensionFactory 工厂扩展点的自适应实现，依次询问所有登记的工厂
//工厂扩展点自己必须有现成的自适应实现，否则合成器没法启动
type AdaptiveExtensionFactory struct {
	factories []IExtensionFactory
}

func newAdaptiveExtensionFactory() *AdaptiveExtensionFactory {
	f := &AdaptiveExtensionFactory{}
	loader := GetExtensionLoader(extensionFactoryType)
	for _, name := range loader.GetSupportedExtensions() {
		ext, err := loader.GetExtension(name)
		if err != nil {
			jlog.StdLogger.Errorf("AdaptiveExtensionFactory: fail to load factory %s: %v", name, err)
			continue
		}
		f.factories = append(f.factories, ext.(IExtensionFactory))
	}
	return f
}

func (factory *AdaptiveExtensionFactory) GetExtension(t reflect.Type, name string) interface{} {
	for _, f := range factory.factories {
		if ext := f.GetExtension(t, name); ext != nil {
			return ext
		}
	}
	return nil
}
