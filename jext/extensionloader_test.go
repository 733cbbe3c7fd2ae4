package jext

import (
	"reflect"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//测试用扩展点：问候
type IGreet interface {
	Greet() string
}

type PlainGreet struct {
}

func (g *PlainGreet) Greet() string {
	return "plain"
}

type FancyGreet struct {
}

func (g *FancyGreet) Greet() string {
	return "fancy"
}

//wrapper，单参构造
type DecorGreet struct {
	inner IGreet
}

func (g *DecorGreet) Greet() string {
	return "decor(" + g.inner.Greet() + ")"
}

var greetType = TypeOf((*IGreet)(nil))

//测试用扩展点：链路追踪wrapper组合
type ITrace interface {
	Trace() []string
}

type BaseTrace struct {
}

func (t *BaseTrace) Trace() []string {
	return []string{"o"}
}

type W1Trace struct {
	inner ITrace
}

func (t *W1Trace) Trace() []string {
	return append([]string{"w1"}, t.inner.Trace()...)
}

type W2Trace struct {
	inner ITrace
}

func (t *W2Trace) Trace() []string {
	return append([]string{"w2"}, t.inner.Trace()...)
}

var traceType = TypeOf((*ITrace)(nil))

func init() {
	RegisterSPI(SPI{Type: greetType, Default: "plain"})
	RegisterClass(Class{
		Type: reflect.TypeOf(PlainGreet{}),
		New:  func() interface{} { return &PlainGreet{} },
	})
	RegisterClass(Class{
		Type: reflect.TypeOf(FancyGreet{}),
		New:  func() interface{} { return &FancyGreet{} },
	})
	RegisterClass(Class{
		Type: reflect.TypeOf(DecorGreet{}),
		Wrap: func(inner interface{}) interface{} { return &DecorGreet{inner: inner.(IGreet)} },
	})

	RegisterSPI(SPI{Type: traceType})
	RegisterClass(Class{
		Type: reflect.TypeOf(BaseTrace{}),
		New:  func() interface{} { return &BaseTrace{} },
	})
	RegisterClass(Class{
		Type: reflect.TypeOf(W1Trace{}),
		Wrap: func(inner interface{}) interface{} { return &W1Trace{inner: inner.(ITrace)} },
	})
	RegisterClass(Class{
		Type: reflect.TypeOf(W2Trace{}),
		Wrap: func(inner interface{}) interface{} { return &W2Trace{inner: inner.(ITrace)} },
	})

	AddProviderFS(fstest.MapFS{
		"META-INF/jdubbo/internal/JDubboFrame.jext.IGreet": &fstest.MapFile{
			Data: []byte("# 测试用描述符\nplain=JDubboFrame.jext.PlainGreet\nfancy=JDubboFrame.jext.FancyGreet\nJDubboFrame.jext.DecorGreet\nbroken=JDubboFrame.jext.NotRegistered\n"),
		},
		"META-INF/jdubbo/internal/JDubboFrame.jext.ITrace": &fstest.MapFile{
			Data: []byte("base=JDubboFrame.jext.BaseTrace\nJDubboFrame.jext.W1Trace\nJDubboFrame.jext.W2Trace\n"),
		},
	})
}

func TestGetExtension(t *testing.T) {
	loader := GetExtensionLoader(greetType)

	ext, err := loader.GetExtension("fancy")
	require.NoError(t, err)
	//组合了wrapper之后最外层是DecorGreet
	assert.Equal(t, "decor(fancy)", ext.(IGreet).Greet())
}

func TestGetDefaultExtension(t *testing.T) {
	loader := GetExtensionLoader(greetType)
	assert.Equal(t, "plain", loader.GetDefaultExtensionName())

	ext, err := loader.GetExtension("true")
	require.NoError(t, err)
	assert.Equal(t, "decor(plain)", ext.(IGreet).Greet())

	def, err := loader.GetDefaultExtension()
	require.NoError(t, err)
	assert.Same(t, ext, def)
}

func TestGetExtensionSingletonRace(t *testing.T) {
	loader := GetExtensionLoader(greetType)

	const workers = 32
	exts := make([]interface{}, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(n int) {
			defer wg.Done()
			ext, err := loader.GetExtension("plain")
			assert.NoError(t, err)
			exts[n] = ext
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		assert.Same(t, exts[0], exts[i], "all callers must observe the same instance")
	}
}

func TestWrapperComposition(t *testing.T) {
	loader := GetExtensionLoader(traceType)
	ext, err := loader.GetExtension("base")
	require.NoError(t, err)

	//描述符顺序是w1、w2，逐层包裹后最外层是w2，最里层是普通实现
	assert.Equal(t, []string{"w2", "w1", "o"}, ext.(ITrace).Trace())
}

func TestLoadIdempotent(t *testing.T) {
	loader := GetExtensionLoader(traceType)
	first := loader.GetSupportedExtensions()
	second := loader.GetSupportedExtensions()
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"base"}, first)

	w1 := len(loader.cachedWrappers)
	loader.GetExtension("base")
	assert.Equal(t, w1, len(loader.cachedWrappers))
}

func TestNotFoundWithDigest(t *testing.T) {
	loader := GetExtensionLoader(greetType)

	_, err := loader.GetExtension("nothing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such extension")

	//描述符里broken这一行的加载错误要出现在摘要里
	_, err = loader.GetExtension("broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such extension")
	assert.Contains(t, err.Error(), "NotRegistered")
}

func TestHasAndSupported(t *testing.T) {
	loader := GetExtensionLoader(greetType)
	assert.True(t, loader.HasExtension("plain"))
	assert.False(t, loader.HasExtension("nothing"))
	assert.Equal(t, []string{"fancy", "plain"}, loader.GetSupportedExtensions())
}

func TestGetExtensionName(t *testing.T) {
	loader := GetExtensionLoader(greetType)
	ext, err := loader.GetExtension("fancy")
	require.NoError(t, err)
	_ = ext
	assert.Equal(t, "fancy", loader.GetExtensionName(&FancyGreet{}))
}

func TestLoadedExtensions(t *testing.T) {
	loader := GetExtensionLoader(greetType)
	loader.GetExtension("plain")
	assert.Contains(t, loader.GetLoadedExtensions(), "plain")
	assert.NotNil(t, loader.GetLoadedExtension("plain"))
	assert.Nil(t, loader.GetLoadedExtension("nothing"))
}

type LateGreet struct {
}

func (g *LateGreet) Greet() string {
	return "late"
}

type Late2Greet struct {
}

func (g *Late2Greet) Greet() string {
	return "late2"
}

func TestAddAndReplaceExtension(t *testing.T) {
	loader := GetExtensionLoader(greetType)

	err := loader.AddExtension("late", Class{
		Type: reflect.TypeOf(LateGreet{}),
		New:  func() interface{} { return &LateGreet{} },
	})
	require.NoError(t, err)

	//重复的名字报错
	err = loader.AddExtension("late", Class{
		Type: reflect.TypeOf(Late2Greet{}),
		New:  func() interface{} { return &Late2Greet{} },
	})
	require.Error(t, err)

	ext, err := loader.GetExtension("late")
	require.NoError(t, err)
	assert.Equal(t, "decor(late)", ext.(IGreet).Greet())

	err = loader.ReplaceExtension("late", Class{
		Type: reflect.TypeOf(Late2Greet{}),
		New:  func() interface{} { return &Late2Greet{} },
	})
	require.NoError(t, err)

	ext, err = loader.GetExtension("late")
	require.NoError(t, err)
	assert.Equal(t, "decor(late2)", ext.(IGreet).Greet())

	//不存在的名字不能替换
	err = loader.ReplaceExtension("never", Class{
		Type: reflect.TypeOf(Late2Greet{}),
		New:  func() interface{} { return &Late2Greet{} },
	})
	require.Error(t, err)
}
