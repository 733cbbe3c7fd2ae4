package jext

import (
	"sync"

	"github.com/pkg/errors"
)

//PlanCompiler 标准合成器，把扩展点的键查找计划装进自适应模板
type PlanCompiler struct {
}

func (compiler *PlanCompiler) Compile(loader *ExtensionLoader) (interface{}, error) {
	ctx, err := newAdaptiveContext(loader)
	if err != nil {
		return nil, err
	}
	return loader.spi.NewAdaptive(ctx), nil
}

var (
	defaultCompilerLock sync.RWMutex
	defaultCompilerName string
)

/*
    @brief:指定合成时优先使用的合成器名，空串表示用合成器扩展点的缺省实现
	@param [in] name:合成器名
*/
func SetDefaultCompiler(name string) {
	defaultCompilerLock.Lock()
	defer defaultCompilerLock.Unlock()
	defaultCompilerName = name
}

func getDefaultCompilerName() string {
	defaultCompilerLock.RLock()
	defer defaultCompilerLock.RUnlock()
	return defaultCompilerName
}

//AdaptiveCompiler 合成器扩展点的自适应实现，现成的代码，不经过合成，打破自引用
type AdaptiveCompiler struct {
}

func (compiler *AdaptiveCompiler) Compile(loader *ExtensionLoader) (interface{}, error) {
	cl := GetExtensionLoader(compilerType)
	var target interface{}
	var err error
	if name := getDefaultCompilerName(); name != "" {
		target, err = cl.GetExtension(name)
	} else {
		target, err = cl.GetDefaultExtension()
		if err == nil && target == nil {
			err = errors.Wrapf(ErrIllegalState, "no default compiler on extension %s", TypeID(compilerType))
		}
	}
	if err != nil {
		return nil, err
	}
	return target.(ICompiler).Compile(loader)
}
