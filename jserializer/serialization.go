package jserializer

import (
	"embed"
	"io"
	"reflect"
	"sync"

	"JDubboFrame/jext"
	"JDubboFrame/jurl"

	"github.com/pkg/errors"
)

//go:embed META-INF
var descriptorFS embed.FS

var serializerType = jext.TypeOf((*ISerializer)(nil))

func init() {
	jext.AddProviderFS(descriptorFS)
	jext.RegisterSPI(jext.SPI{
		Type:    serializerType,
		Default: DefaultSerialization,
		Methods: []jext.AdaptiveMethod{
			{Name: "Serialize", Keys: []string{"serialization"}},
			{Name: "Deserialize", Keys: []string{"serialization"}},
		},
		NewAdaptive: func(ctx *jext.AdaptiveContext) interface{} {
			return &AdaptiveSerializer{ctx: ctx}
		},
	})
	jext.RegisterClass(jext.Class{
		Type: reflect.TypeOf(GobSerializer{}),
		New:  func() interface{} { return &GobSerializer{} },
	})
	jext.RegisterClass(jext.Class{
		Type: reflect.TypeOf(JsonSerializer{}),
		New:  func() interface{} { return &JsonSerializer{} },
	})
	jext.RegisterClass(jext.Class{
		Type: reflect.TypeOf(PbSerializer{}),
		New:  func() interface{} { return &PbSerializer{} },
	})
}

//AdaptiveSerializer 序列化扩展点的自适应模板，按URL的serialization参数选出实现再委托
type AdaptiveSerializer struct {
	ctx *jext.AdaptiveContext
}

func (s *AdaptiveSerializer) GetContentTypeId() byte {
	panic(s.ctx.Unsupported("GetContentTypeId"))
}

func (s *AdaptiveSerializer) Serialize(url *jurl.URL, w io.Writer) (IObjectOutput, error) {
	ext, err := s.ctx.Extension("Serialize", url, nil)
	if err != nil {
		return nil, err
	}
	return ext.(ISerializer).Serialize(url, w)
}

func (s *AdaptiveSerializer) Deserialize(url *jurl.URL, r io.Reader) (IObjectInput, error) {
	ext, err := s.ctx.Extension("Deserialize", url, nil)
	if err != nil {
		return nil, err
	}
	return ext.(ISerializer).Deserialize(url, r)
}

/*
    @brief:按URL的serialization参数取序列化实现，没有参数时用缺省实现
	@param [in] url:本次调用的URL
*/
func GetSerialization(url *jurl.URL) (ISerializer, error) {
	name := DefaultSerialization
	if url != nil {
		name = url.GetParam("serialization", DefaultSerialization)
	}
	ext, err := jext.GetExtensionLoader(serializerType).GetExtension(name)
	if err != nil {
		return nil, err
	}
	return ext.(ISerializer), nil
}

var (
	idCacheLock sync.RWMutex
	idCache     = map[byte]ISerializer{}
)

/*
    @brief:按帧头里的序列化id反查实现，解码时使用
	实现都是单例，命中过的id会被缓存；新登记的实现在下一次未命中时被重新扫描到
	@param [in] id:序列化id
*/
func GetSerializationById(id byte) (ISerializer, error) {
	idCacheLock.RLock()
	s := idCache[id]
	idCacheLock.RUnlock()
	if s != nil {
		return s, nil
	}

	loader := jext.GetExtensionLoader(serializerType)
	var found ISerializer
	for _, name := range loader.GetSupportedExtensions() {
		ext, err := loader.GetExtension(name)
		if err != nil {
			continue
		}
		sz := ext.(ISerializer)
		if sz.GetContentTypeId() == id {
			found = sz
			break
		}
	}
	if found == nil {
		return nil, errors.Errorf("serialization extension with id %d not found", id)
	}
	idCacheLock.Lock()
	idCache[id] = found
	idCacheLock.Unlock()
	return found, nil
}
