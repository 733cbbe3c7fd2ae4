package jext

import (
	"strings"
	"unicode"

	"JDubboFrame/jurl"

	"github.com/pkg/errors"
)

//methodPlan 一个自适应方法的键查找计划，合成时算好，调用时只做查表
type methodPlan struct {
	keys []string
}

//AdaptiveContext 自适应实例的解析上下文，自适应模板的方法都委托到这里
type AdaptiveContext struct {
	loader      *ExtensionLoader
	plans       map[string]*methodPlan
	defaultName string
}

/*
    @brief:为扩展点构建解析上下文，扩展点必须至少声明一个自适应方法
	@param [in] loader:扩展点的loader
*/
func newAdaptiveContext(loader *ExtensionLoader) (*AdaptiveContext, error) {
	spi := loader.spi
	if spi.NewAdaptive == nil || len(spi.Methods) == 0 {
		return nil, errors.Wrapf(ErrSynthesis,
			"no adaptive method on extension %s, refuse to create the adaptive instance", TypeID(loader.typ))
	}
	ctx := &AdaptiveContext{
		loader:      loader,
		plans:       make(map[string]*methodPlan, len(spi.Methods)),
		defaultName: loader.GetDefaultExtensionName(),
	}
	for _, m := range spi.Methods {
		keys := m.Keys
		if len(keys) == 0 {
			keys = []string{deriveAdaptiveKey(loader.typ.Name())}
		}
		ctx.plans[m.Name] = &methodPlan{keys: keys}
	}
	return ctx, nil
}

/*
    @brief:从扩展点类型名推导缺省的URL参数键：去掉I前缀，按大小写边界拆分后用'.'连接
	比如ILoadBalance推导出load.balance
*/
func deriveAdaptiveKey(typeName string) string {
	name := typeName
	if len(name) > 1 && name[0] == 'I' && unicode.IsUpper(rune(name[1])) {
		name = name[1:]
	}
	var buf strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i != 0 {
				buf.WriteByte('.')
			}
			buf.WriteRune(unicode.ToLower(r))
		} else {
			buf.WriteRune(r)
		}
	}
	return buf.String()
}

/*
    @brief:按照方法的键计划从URL中解析出实现名
	键从右到左构成嵌套的兜底表达式，最右边以扩展点缺省名打底；
	伪键protocol取URL的协议名；有调用描述时走方法级参数查找
	@param [in] method:自适应方法名
	@param [in] url:本次调用的URL，不能为nil
	@param [in] inv:调用描述，可以为nil
	@return:实现名
*/
func (ctx *AdaptiveContext) ExtName(method string, url *jurl.URL, inv IInvocation) (string, error) {
	plan := ctx.plans[method]
	if plan == nil {
		return "", ctx.Unsupported(method)
	}
	if url == nil {
		return "", errors.Wrap(ErrIllegalArgument, "url == nil")
	}
	methodName := ""
	if inv != nil {
		methodName = inv.GetMethodName()
	}
	extName := ctx.defaultName
	for i := len(plan.keys) - 1; i >= 0; i-- {
		key := plan.keys[i]
		if key == "protocol" {
			if p := url.GetProtocol(); p != "" {
				extName = p
			}
		} else if inv != nil {
			extName = url.GetMethodParameter(methodName, key, extName)
		} else {
			extName = url.GetParam(key, extName)
		}
	}
	if extName == "" {
		return "", errors.Wrapf(ErrIllegalState,
			"Fail to get extension(%s) name from url(%s) use keys(%v)",
			TypeID(ctx.loader.typ), url.String(), plan.keys)
	}
	return extName, nil
}

/*
    @brief:解析出实现名并返回对应的扩展实例，自适应模板的方法体就是调这里再委托
	@param [in] method:自适应方法名
	@param [in] url:本次调用的URL
	@param [in] inv:调用描述，可以为nil
*/
func (ctx *AdaptiveContext) Extension(method string, url *jurl.URL, inv IInvocation) (interface{}, error) {
	name, err := ctx.ExtName(method, url, inv)
	if err != nil {
		return nil, err
	}
	return ctx.loader.GetExtension(name)
}

/*
   @brief:非自适应方法被调用时的报错，自适应模板在这些方法里panic它
*/
func (ctx *AdaptiveContext) Unsupported(method string) error {
	return errors.Wrapf(ErrUnsupportedOperation,
		"method %s of interface %s is not adaptive method", method, TypeID(ctx.loader.typ))
}
