package jext

import (
	"reflect"
	"testing"
	"testing/fstest"

	"JDubboFrame/jurl"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//测试用扩展点：可激活的拦截器
type IStep interface {
	Step() string
}

type CacheStep struct {
}

func (s *CacheStep) Step() string { return "cache" }

type MonitorStep struct {
}

func (s *MonitorStep) Step() string { return "monitor" }

type ValidateStep struct {
}

func (s *ValidateStep) Step() string { return "validate" }

type CustomStep struct {
}

func (s *CustomStep) Step() string { return "custom" }

var stepType = TypeOf((*IStep)(nil))

func init() {
	RegisterSPI(SPI{Type: stepType})
	//cache：provider组，URL带cache键时激活
	RegisterClass(Class{
		Type:     reflect.TypeOf(CacheStep{}),
		New:      func() interface{} { return &CacheStep{} },
		Activate: &Activate{Group: []string{"provider"}, Value: []string{"cache"}},
	})
	//monitor：consumer组，无键谓词
	RegisterClass(Class{
		Type:     reflect.TypeOf(MonitorStep{}),
		New:      func() interface{} { return &MonitorStep{} },
		Activate: &Activate{Group: []string{"consumer"}},
	})
	//validate：两个组都有，排在cache之前
	RegisterClass(Class{
		Type:     reflect.TypeOf(ValidateStep{}),
		New:      func() interface{} { return &ValidateStep{} },
		Activate: &Activate{Group: []string{"provider", "consumer"}, Before: []string{"cache"}},
	})
	//custom：没有激活元信息，只能显式点名
	RegisterClass(Class{
		Type: reflect.TypeOf(CustomStep{}),
		New:  func() interface{} { return &CustomStep{} },
	})

	AddProviderFS(fstest.MapFS{
		"META-INF/jdubbo/internal/JDubboFrame.jext.IStep": &fstest.MapFile{
			Data: []byte("cache=JDubboFrame.jext.CacheStep\nmonitor=JDubboFrame.jext.MonitorStep\nvalidate=JDubboFrame.jext.ValidateStep\ncustom=JDubboFrame.jext.CustomStep\n"),
		},
	})
}

func stepNames(exts []interface{}) []string {
	names := make([]string, 0, len(exts))
	for _, e := range exts {
		names = append(names, e.(IStep).Step())
	}
	return names
}

func TestActivateGroupAndKey(t *testing.T) {
	loader := GetExtensionLoader(stepType)
	url, err := jurl.ParseURL("dubbo://127.0.0.1:20880/demo?cache=lru")
	require.NoError(t, err)

	//provider组：validate无键谓词激活，cache被URL的cache键激活，validate排在cache之前
	exts, err := loader.GetActivateExtension(url, nil, "provider")
	require.NoError(t, err)
	assert.Equal(t, []string{"validate", "cache"}, stepNames(exts))

	//URL没有cache键时cache不激活
	plainUrl, err := jurl.ParseURL("dubbo://127.0.0.1:20880/demo")
	require.NoError(t, err)
	exts, err = loader.GetActivateExtension(plainUrl, nil, "provider")
	require.NoError(t, err)
	assert.Equal(t, []string{"validate"}, stepNames(exts))

	//键谓词也匹配 *.cache 形式
	dottedUrl, err := jurl.ParseURL("dubbo://127.0.0.1:20880/demo?method.cache=lru")
	require.NoError(t, err)
	exts, err = loader.GetActivateExtension(dottedUrl, nil, "provider")
	require.NoError(t, err)
	assert.Equal(t, []string{"validate", "cache"}, stepNames(exts))
}

func TestActivateRemoval(t *testing.T) {
	loader := GetExtensionLoader(stepType)
	url, err := jurl.ParseURL("dubbo://127.0.0.1:20880/demo?cache=lru")
	require.NoError(t, err)

	//显式-monitor把monitor从隐式批次里去掉；空组匹配所有组
	exts, err := loader.GetActivateExtension(url, []string{"-monitor"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"validate", "cache"}, stepNames(exts))

	//-validate去掉validate
	exts, err = loader.GetActivateExtension(url, []string{"-validate"}, "provider")
	require.NoError(t, err)
	assert.Equal(t, []string{"cache"}, stepNames(exts))
}

func TestActivateExplicitOrder(t *testing.T) {
	loader := GetExtensionLoader(stepType)
	url, err := jurl.ParseURL("dubbo://127.0.0.1:20880/demo?cache=lru")
	require.NoError(t, err)

	//显式名单排在隐式批次后面
	exts, err := loader.GetActivateExtension(url, []string{"custom"}, "provider")
	require.NoError(t, err)
	assert.Equal(t, []string{"validate", "cache", "custom"}, stepNames(exts))

	//default之前的显式扩展插到隐式批次前面
	exts, err = loader.GetActivateExtension(url, []string{"custom", "default"}, "provider")
	require.NoError(t, err)
	assert.Equal(t, []string{"custom", "validate", "cache"}, stepNames(exts))
}

func TestActivateSuppressDefault(t *testing.T) {
	loader := GetExtensionLoader(stepType)
	url, err := jurl.ParseURL("dubbo://127.0.0.1:20880/demo?cache=lru")
	require.NoError(t, err)

	//-default压掉整个隐式批次
	exts, err := loader.GetActivateExtension(url, []string{"-default", "custom"}, "provider")
	require.NoError(t, err)
	assert.Equal(t, []string{"custom"}, stepNames(exts))

	exts, err = loader.GetActivateExtension(url, []string{"-default"}, "provider")
	require.NoError(t, err)
	assert.Empty(t, exts)
}

func TestActivateWithKey(t *testing.T) {
	loader := GetExtensionLoader(stepType)
	url, err := jurl.ParseURL("dubbo://127.0.0.1:20880/demo?steps=custom,-validate")
	require.NoError(t, err)

	exts, err := loader.GetActivateExtension(url, nil, "provider")
	require.NoError(t, err)
	assert.Equal(t, []string{"validate"}, stepNames(exts))

	exts, err = loader.GetActivateExtensionWithKey(url, "steps", "provider")
	require.NoError(t, err)
	assert.Equal(t, []string{"custom"}, stepNames(exts))
}
