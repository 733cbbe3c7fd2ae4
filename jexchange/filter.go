package jexchange

import (
	"embed"
	"reflect"
	"time"

	"JDubboFrame/jext"
	"JDubboFrame/jlog"
	"JDubboFrame/jurl"
	"JDubboFrame/profiler"
)

//go:embed META-INF
var descriptorFS embed.FS

//HandlerFunc 请求处理函数，过滤器链的每一环
type HandlerFunc func(url *jurl.URL, req *Request) (interface{}, error)

//IFilter 请求过滤扩展点，按URL和组激活，没有自适应方法
type IFilter interface {
	Filter(next HandlerFunc, url *jurl.URL, req *Request) (interface{}, error)
}

var filterType = jext.TypeOf((*IFilter)(nil))

func init() {
	jext.AddProviderFS(descriptorFS)
	jext.RegisterSPI(jext.SPI{Type: filterType})
	jext.RegisterClass(jext.Class{
		Type:     reflect.TypeOf(AccessLogFilter{}),
		New:      func() interface{} { return &AccessLogFilter{} },
		Activate: &jext.Activate{Group: []string{"provider"}, Value: []string{"accesslog"}},
	})
	jext.RegisterClass(jext.Class{
		Type:     reflect.TypeOf(ProfileFilter{}),
		New:      func() interface{} { return &ProfileFilter{} },
		Activate: &jext.Activate{Group: []string{"provider", "consumer"}, Value: []string{"profile"}, Order: -10000},
	})
}

/*
    @brief:按URL的filters参数和组装配过滤器链，激活顺序即包裹顺序
	@param [in] url:本端URL
	@param [in] group:provider或者consumer
	@param [in] handler:链的最里层，真正的请求处理
	@return:包好过滤器的处理函数
*/
func BuildFilterChain(url *jurl.URL, group string, handler HandlerFunc) (HandlerFunc, error) {
	loader := jext.GetExtensionLoader(filterType)
	exts, err := loader.GetActivateExtensionWithKey(url, "filters", group)
	if err != nil {
		return nil, err
	}
	chain := handler
	for i := len(exts) - 1; i >= 0; i-- {
		filter := exts[i].(IFilter)
		next := chain
		chain = func(url *jurl.URL, req *Request) (interface{}, error) {
			return filter.Filter(next, url, req)
		}
	}
	return chain, nil
}

//AccessLogFilter 访问日志过滤器，provider组，URL带accesslog参数时激活
type AccessLogFilter struct {
}

func (f *AccessLogFilter) Filter(next HandlerFunc, url *jurl.URL, req *Request) (interface{}, error) {
	start := time.Now()
	result, err := next(url, req)
	method := ""
	if inv, ok := req.Data.(*Invocation); ok {
		method = inv.ServiceMethod
	}
	if err != nil {
		jlog.StdLogger.Infof("[access] %s id=%d method=%s cost=%v error=%v",
			url.GetAddress(), req.Id, method, time.Since(start), err)
	} else {
		jlog.StdLogger.Infof("[access] %s id=%d method=%s cost=%v",
			url.GetAddress(), req.Id, method, time.Since(start))
	}
	return result, err
}

//ProfileFilter 性能监测过滤器，URL带profile参数时激活，处理超长时会被监测器记录
type ProfileFilter struct {
}

func (f *ProfileFilter) Filter(next HandlerFunc, url *jurl.URL, req *Request) (interface{}, error) {
	p := profiler.RegProfiler("jexchange")
	tag := "request"
	if inv, ok := req.Data.(*Invocation); ok {
		tag = inv.ServiceMethod
	}
	analyzer := p.Push(tag)
	defer analyzer.Pop()
	return next(url, req)
}
