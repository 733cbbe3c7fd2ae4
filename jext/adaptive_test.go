package jext

import (
	"reflect"
	"testing"
	"testing/fstest"

	"JDubboFrame/jurl"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//测试用扩展点：负载均衡，键从类型名推导出load.balance
type ILoadBalance interface {
	Select(url *jurl.URL, inv IInvocation) (string, error)
	Name() string
}

type RandomLoadBalance struct {
}

func (lb *RandomLoadBalance) Select(url *jurl.URL, inv IInvocation) (string, error) {
	return "random", nil
}

func (lb *RandomLoadBalance) Name() string {
	return "random"
}

type RoundRobinLoadBalance struct {
}

func (lb *RoundRobinLoadBalance) Select(url *jurl.URL, inv IInvocation) (string, error) {
	return "roundrobin", nil
}

func (lb *RoundRobinLoadBalance) Name() string {
	return "roundrobin"
}

//自适应模板
type AdaptiveLoadBalance struct {
	ctx *AdaptiveContext
}

func (lb *AdaptiveLoadBalance) Select(url *jurl.URL, inv IInvocation) (string, error) {
	ext, err := lb.ctx.Extension("Select", url, inv)
	if err != nil {
		return "", err
	}
	return ext.(ILoadBalance).Select(url, inv)
}

func (lb *AdaptiveLoadBalance) Name() string {
	panic(lb.ctx.Unsupported("Name"))
}

var loadBalanceType = TypeOf((*ILoadBalance)(nil))

//测试用扩展点：协议，伪键protocol从URL协议名取实现
type IProto interface {
	Export(url *jurl.URL) (string, error)
}

type DubboProto struct {
}

func (p *DubboProto) Export(url *jurl.URL) (string, error) {
	return "dubbo", nil
}

type GrpcProto struct {
}

func (p *GrpcProto) Export(url *jurl.URL) (string, error) {
	return "grpc", nil
}

type AdaptiveProto struct {
	ctx *AdaptiveContext
}

func (p *AdaptiveProto) Export(url *jurl.URL) (string, error) {
	ext, err := p.ctx.Extension("Export", url, nil)
	if err != nil {
		return "", err
	}
	return ext.(IProto).Export(url)
}

var protoType = TypeOf((*IProto)(nil))

//测试注入：实现里有一个扩展点类型的公有字段
type IInjected interface {
	Work(url *jurl.URL) (string, error)
}

type SimpleInjected struct {
	LoadBalance ILoadBalance //注入点，类型是已知扩展点
	Other       string       //非扩展点字段，跳过
}

func (s *SimpleInjected) Work(url *jurl.URL) (string, error) {
	if s.LoadBalance == nil {
		return "", errors.New("not injected")
	}
	return s.LoadBalance.Select(url, nil)
}

var injectedType = TypeOf((*IInjected)(nil))

//重复自适应的扩展点
type IDupAdaptive interface {
	Do() string
}

type DupAdaptiveA struct {
}

func (d *DupAdaptiveA) Do() string { return "a" }

type DupAdaptiveB struct {
}

func (d *DupAdaptiveB) Do() string { return "b" }

var dupAdaptiveType = TypeOf((*IDupAdaptive)(nil))

//没有自适应方法的扩展点
type INoAdaptive interface {
	Nothing()
}

type NoAdaptiveImpl struct {
}

func (n *NoAdaptiveImpl) Nothing() {}

var noAdaptiveType = TypeOf((*INoAdaptive)(nil))

func init() {
	RegisterSPI(SPI{
		Type:    loadBalanceType,
		Default: "random",
		Methods: []AdaptiveMethod{{Name: "Select"}}, //键留空，从类型名推导
		NewAdaptive: func(ctx *AdaptiveContext) interface{} {
			return &AdaptiveLoadBalance{ctx: ctx}
		},
	})
	RegisterClass(Class{Type: reflect.TypeOf(RandomLoadBalance{}), New: func() interface{} { return &RandomLoadBalance{} }})
	RegisterClass(Class{Type: reflect.TypeOf(RoundRobinLoadBalance{}), New: func() interface{} { return &RoundRobinLoadBalance{} }})

	RegisterSPI(SPI{
		Type:    protoType,
		Methods: []AdaptiveMethod{{Name: "Export", Keys: []string{"protocol"}}},
		NewAdaptive: func(ctx *AdaptiveContext) interface{} {
			return &AdaptiveProto{ctx: ctx}
		},
	})
	RegisterClass(Class{Type: reflect.TypeOf(DubboProto{}), New: func() interface{} { return &DubboProto{} }})
	RegisterClass(Class{Type: reflect.TypeOf(GrpcProto{}), New: func() interface{} { return &GrpcProto{} }})

	RegisterSPI(SPI{Type: injectedType})
	RegisterClass(Class{Type: reflect.TypeOf(SimpleInjected{}), New: func() interface{} { return &SimpleInjected{} }})

	RegisterSPI(SPI{Type: dupAdaptiveType})
	RegisterClass(Class{Type: reflect.TypeOf(DupAdaptiveA{}), New: func() interface{} { return &DupAdaptiveA{} }, Adaptive: true})
	RegisterClass(Class{Type: reflect.TypeOf(DupAdaptiveB{}), New: func() interface{} { return &DupAdaptiveB{} }, Adaptive: true})

	RegisterSPI(SPI{Type: noAdaptiveType})
	RegisterClass(Class{Type: reflect.TypeOf(NoAdaptiveImpl{}), New: func() interface{} { return &NoAdaptiveImpl{} }})

	AddProviderFS(fstest.MapFS{
		"META-INF/jdubbo/internal/JDubboFrame.jext.ILoadBalance": &fstest.MapFile{
			Data: []byte("random=JDubboFrame.jext.RandomLoadBalance\nroundrobin=JDubboFrame.jext.RoundRobinLoadBalance\n"),
		},
		"META-INF/jdubbo/internal/JDubboFrame.jext.IProto": &fstest.MapFile{
			Data: []byte("dubbo=JDubboFrame.jext.DubboProto\ngrpc=JDubboFrame.jext.GrpcProto\n"),
		},
		"META-INF/jdubbo/internal/JDubboFrame.jext.IInjected": &fstest.MapFile{
			Data: []byte("simple=JDubboFrame.jext.SimpleInjected\n"),
		},
		"META-INF/jdubbo/internal/JDubboFrame.jext.IDupAdaptive": &fstest.MapFile{
			Data: []byte("JDubboFrame.jext.DupAdaptiveA\nJDubboFrame.jext.DupAdaptiveB\n"),
		},
		"META-INF/jdubbo/internal/JDubboFrame.jext.INoAdaptive": &fstest.MapFile{
			Data: []byte("none=JDubboFrame.jext.NoAdaptiveImpl\n"),
		},
	})
}

func TestDeriveAdaptiveKey(t *testing.T) {
	assert.Equal(t, "load.balance", deriveAdaptiveKey("ILoadBalance"))
	assert.Equal(t, "serializer", deriveAdaptiveKey("ISerializer"))
	assert.Equal(t, "protocol", deriveAdaptiveKey("Protocol"))
}

func TestAdaptiveDispatchByParameter(t *testing.T) {
	loader := GetExtensionLoader(loadBalanceType)
	adaptive, err := loader.GetAdaptiveExtension()
	require.NoError(t, err)
	lb := adaptive.(ILoadBalance)

	url, err := jurl.ParseURL("dubbo://127.0.0.1:20880/demo?load.balance=roundrobin")
	require.NoError(t, err)
	got, err := lb.Select(url, nil)
	require.NoError(t, err)
	assert.Equal(t, "roundrobin", got)

	//没有参数时走缺省实现
	url, err = jurl.ParseURL("dubbo://127.0.0.1:20880/demo")
	require.NoError(t, err)
	got, err = lb.Select(url, nil)
	require.NoError(t, err)
	assert.Equal(t, "random", got)
}

type testInvocation struct {
	method string
}

func (inv *testInvocation) GetMethodName() string {
	return inv.method
}

func TestAdaptiveDispatchByMethodParameter(t *testing.T) {
	loader := GetExtensionLoader(loadBalanceType)
	adaptive, err := loader.GetAdaptiveExtension()
	require.NoError(t, err)
	lb := adaptive.(ILoadBalance)

	//方法级参数优先于普通参数
	url, err := jurl.ParseURL("dubbo://127.0.0.1:20880/demo?load.balance=random&query.load.balance=roundrobin")
	require.NoError(t, err)
	got, err := lb.Select(url, &testInvocation{method: "query"})
	require.NoError(t, err)
	assert.Equal(t, "roundrobin", got)
}

func TestAdaptiveDispatchByProtocol(t *testing.T) {
	loader := GetExtensionLoader(protoType)
	adaptive, err := loader.GetAdaptiveExtension()
	require.NoError(t, err)
	p := adaptive.(IProto)

	url, err := jurl.ParseURL("dubbo://127.0.0.1:20880/demo")
	require.NoError(t, err)
	got, err := p.Export(url)
	require.NoError(t, err)
	assert.Equal(t, "dubbo", got)

	url, err = jurl.ParseURL("grpc://127.0.0.1:20880/demo")
	require.NoError(t, err)
	got, err = p.Export(url)
	require.NoError(t, err)
	assert.Equal(t, "grpc", got)
}

func TestAdaptiveNilUrl(t *testing.T) {
	loader := GetExtensionLoader(loadBalanceType)
	adaptive, err := loader.GetAdaptiveExtension()
	require.NoError(t, err)

	_, err = adaptive.(ILoadBalance).Select(nil, nil)
	require.Error(t, err)
	assert.Equal(t, ErrIllegalArgument, errors.Cause(err))
}

func TestAdaptiveNameUnresolved(t *testing.T) {
	//IProto没有缺省名，URL又没有协议名时报IllegalState
	loader := GetExtensionLoader(protoType)
	adaptive, err := loader.GetAdaptiveExtension()
	require.NoError(t, err)

	url := jurl.NewURL("", "127.0.0.1", 20880, "demo", nil)
	_, err = adaptive.(IProto).Export(url)
	require.Error(t, err)
	assert.Equal(t, ErrIllegalState, errors.Cause(err))
	assert.Contains(t, err.Error(), "Fail to get extension(")
	assert.Contains(t, err.Error(), "use keys([protocol])")
}

func TestAdaptiveUnsupportedMethod(t *testing.T) {
	loader := GetExtensionLoader(loadBalanceType)
	adaptive, err := loader.GetAdaptiveExtension()
	require.NoError(t, err)

	assert.Panics(t, func() {
		adaptive.(ILoadBalance).Name()
	})
}

func TestInjection(t *testing.T) {
	loader := GetExtensionLoader(injectedType)
	ext, err := loader.GetExtension("simple")
	require.NoError(t, err)

	impl := ext.(*SimpleInjected)
	require.NotNil(t, impl.LoadBalance, "extension point field must be injected")
	//注入的是自适应实例
	_, ok := impl.LoadBalance.(*AdaptiveLoadBalance)
	assert.True(t, ok)
	assert.Equal(t, "", impl.Other)

	url, _ := jurl.ParseURL("dubbo://127.0.0.1:20880/demo?load.balance=roundrobin")
	got, err := impl.Work(url)
	require.NoError(t, err)
	assert.Equal(t, "roundrobin", got)
}

func TestDuplicateAdaptiveFatal(t *testing.T) {
	loader := GetExtensionLoader(dupAdaptiveType)
	_, err := loader.GetExtension("whatever")
	require.Error(t, err)
	assert.Equal(t, ErrDuplicateAdaptive, errors.Cause(err))
}

func TestSynthesisFailure(t *testing.T) {
	loader := GetExtensionLoader(noAdaptiveType)
	_, err := loader.GetAdaptiveExtension()
	require.Error(t, err)
	assert.Equal(t, ErrSynthesis, errors.Cause(err))

	//失败会被记住
	_, err2 := loader.GetAdaptiveExtension()
	require.Error(t, err2)
}
