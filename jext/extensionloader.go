package jext

import (
	"bufio"
	"bytes"
	"reflect"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"JDubboFrame/jlog"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

var (
	//进程级的loader表，每个扩展点只有一个ExtensionLoader
	extensionLoaders sync.Map // reflect.Type -> *ExtensionLoader
	//进程级的裸实例表，同一个实现类型在不同扩展点下共享同一个裸实例
	extensionInstances sync.Map // reflect.Type -> interface{}
)

//instanceBox holder中发布实例用的盒子，避免atomic.Value存接口的类型抖动
type instanceBox struct {
	v interface{}
}

//holder 每个名字一个的两段式初始化单元，先无锁读，读不到再拿槽锁构造
type holder struct {
	lock  sync.Mutex
	value atomic.Value // instanceBox
}

func (h *holder) get() interface{} {
	if b, ok := h.value.Load().(instanceBox); ok {
		return b.v
	}
	return nil
}

func (h *holder) set(v interface{}) {
	h.value.Store(instanceBox{v: v})
}

//ExtensionLoader 一个扩展点的注册表，持有名字到实现的映射和单例缓存
type ExtensionLoader struct {
	typ           reflect.Type
	spi           *SPI
	objectFactory IExtensionFactory //注入时使用的对象工厂，扩展点是IExtensionFactory本身时为nil

	classesLock         sync.Mutex
	cachedClasses       atomic.Value // map[string]*Class，整体加载完成后一次性发布
	cachedNames         map[reflect.Type]string
	cachedActivates     map[string]*Activate
	cachedActivateNames []string //按描述符出现顺序
	cachedWrappers      []*Class //按描述符出现顺序，组合时依次包裹
	cachedAdaptiveClass *Class
	cachedDefaultName   string
	exceptions          map[string]error //行文本 -> 加载错误

	instances sync.Map // name -> *holder

	adaptiveLock   sync.Mutex
	cachedAdaptive atomic.Value // *instanceBox，替换自适应实现时存typed nil作废
	adaptiveErr    error
}

/*
    @brief:获得扩展点的loader，扩展点必须先用RegisterSPI声明过
	@param [in] t:扩展点接口类型，用jext.TypeOf((*Point)(nil))取得
	@return:该扩展点的唯一loader
*/
func GetExtensionLoader(t reflect.Type) *ExtensionLoader {
	if t == nil {
		jlog.StdLogger.Panic("GetExtensionLoader: extension type == nil")
	}
	if t.Kind() != reflect.Interface {
		jlog.StdLogger.Panicf("GetExtensionLoader: extension type(%s) is not interface", t.String())
	}
	spi := getSPI(t)
	if spi == nil {
		jlog.StdLogger.Panicf("GetExtensionLoader: extension type(%s) is not extension point, without SPI registration", TypeID(t))
	}
	if v, ok := extensionLoaders.Load(t); ok {
		return v.(*ExtensionLoader)
	}
	v, _ := extensionLoaders.LoadOrStore(t, newExtensionLoader(t, spi))
	return v.(*ExtensionLoader)
}

func newExtensionLoader(t reflect.Type, spi *SPI) *ExtensionLoader {
	loader := &ExtensionLoader{
		typ:             t,
		spi:             spi,
		cachedNames:     map[reflect.Type]string{},
		cachedActivates: map[string]*Activate{},
		exceptions:      map[string]error{},
	}
	//IExtensionFactory自己的loader没有对象工厂，其他扩展点用工厂的自适应实例，先加载工厂
	if t != extensionFactoryType {
		factory, err := GetExtensionLoader(extensionFactoryType).GetAdaptiveExtension()
		if err != nil {
			jlog.StdLogger.Errorf("fail to load adaptive extension factory: %v", err)
		} else {
			loader.objectFactory = factory.(IExtensionFactory)
		}
	}
	return loader
}

func (loader *ExtensionLoader) GetType() reflect.Type {
	return loader.typ
}

/*
    @brief:按名字获得wrapper组合后的扩展单例，第一次访问时构造
	名字"true"返回缺省扩展，未知名字返回ErrNotFound并带上加载期错误的摘要
	@param [in] name:扩展名
*/
func (loader *ExtensionLoader) GetExtension(name string) (interface{}, error) {
	if name == "" {
		return nil, errors.Wrap(ErrIllegalArgument, "extension name == nil")
	}
	if name == "true" {
		return loader.GetDefaultExtension()
	}
	h := loader.holderOf(name)
	if v := h.get(); v != nil {
		return v, nil
	}
	h.lock.Lock()
	defer h.lock.Unlock()
	if v := h.get(); v != nil {
		return v, nil
	}
	instance, err := loader.createExtension(name)
	if err != nil {
		return nil, err
	}
	h.set(instance)
	return instance, nil
}

/*
   @brief:获得缺省扩展，扩展点没有声明缺省名时返回nil
*/
func (loader *ExtensionLoader) GetDefaultExtension() (interface{}, error) {
	if _, err := loader.getExtensionClasses(); err != nil {
		return nil, err
	}
	if loader.cachedDefaultName == "" || loader.cachedDefaultName == "true" {
		return nil, nil
	}
	return loader.GetExtension(loader.cachedDefaultName)
}

/*
   @brief:名字是否是本扩展点的已知实现
*/
func (loader *ExtensionLoader) HasExtension(name string) bool {
	if name == "" {
		return false
	}
	classes, err := loader.getExtensionClasses()
	if err != nil {
		return false
	}
	_, ok := classes[name]
	return ok
}

/*
   @brief:所有已知实现名，按字典序
*/
func (loader *ExtensionLoader) GetSupportedExtensions() []string {
	classes, err := loader.getExtensionClasses()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(classes))
	for name := range classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

/*
   @brief:缺省实现名，没有配置时为空串
*/
func (loader *ExtensionLoader) GetDefaultExtensionName() string {
	loader.getExtensionClasses() //触发加载，错误由具体查找时再报
	return loader.cachedDefaultName
}

/*
   @brief:按名字取已经构造过的实例，不触发构造
*/
func (loader *ExtensionLoader) GetLoadedExtension(name string) interface{} {
	if name == "" {
		return nil
	}
	return loader.holderOf(name).get()
}

/*
   @brief:已经构造过实例的名字集合，按字典序
*/
func (loader *ExtensionLoader) GetLoadedExtensions() []string {
	var names []string
	loader.instances.Range(func(k, v interface{}) bool {
		if v.(*holder).get() != nil {
			names = append(names, k.(string))
		}
		return true
	})
	sort.Strings(names)
	return names
}

/*
   @brief:按实例反查实现登记的第一个名字
*/
func (loader *ExtensionLoader) GetExtensionName(instance interface{}) string {
	if instance == nil {
		return ""
	}
	loader.getExtensionClasses() //触发加载，错误由具体查找时再报
	t := reflect.TypeOf(instance)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	loader.classesLock.Lock()
	defer loader.classesLock.Unlock()
	return loader.cachedNames[t]
}

/*
    @brief:编程式登记一个实现，名字已存在时报错
	@param [in] name:扩展名，自适应实现可以为空
	@param [in] class:实现登记项
*/
func (loader *ExtensionLoader) AddExtension(name string, class Class) error {
	classes, err := loader.getExtensionClasses()
	if err != nil {
		return err
	}
	if !class.implementsPoint(loader.typ) {
		return errors.Wrapf(ErrIllegalState, "input type %s not implement extension %s",
			class.Type.String(), TypeID(loader.typ))
	}
	loader.classesLock.Lock()
	defer loader.classesLock.Unlock()
	c := class
	if c.Adaptive {
		if loader.cachedAdaptiveClass != nil {
			return errors.Wrapf(ErrIllegalState, "adaptive extension already existed on extension %s", TypeID(loader.typ))
		}
		loader.cachedAdaptiveClass = &c
		return nil
	}
	if name == "" {
		return errors.Wrap(ErrIllegalArgument, "extension name == nil")
	}
	if _, ok := classes[name]; ok {
		return errors.Wrapf(ErrIllegalState, "extension name %s already existed on extension %s", name, TypeID(loader.typ))
	}
	next := copyClasses(classes)
	next[name] = &c
	loader.cachedNames[c.Type] = name
	loader.cachedClasses.Store(next)
	return nil
}

/*
    @brief:编程式替换一个实现，名字不存在时报错，已构造的实例会作废
	@param [in] name:扩展名，替换自适应实现时可以为空
	@param [in] class:实现登记项
*/
func (loader *ExtensionLoader) ReplaceExtension(name string, class Class) error {
	classes, err := loader.getExtensionClasses()
	if err != nil {
		return err
	}
	if !class.implementsPoint(loader.typ) {
		return errors.Wrapf(ErrIllegalState, "input type %s not implement extension %s",
			class.Type.String(), TypeID(loader.typ))
	}
	c := class
	if c.Adaptive {
		loader.classesLock.Lock()
		if loader.cachedAdaptiveClass == nil {
			loader.classesLock.Unlock()
			return errors.Wrapf(ErrIllegalState, "adaptive extension not existed on extension %s", TypeID(loader.typ))
		}
		loader.cachedAdaptiveClass = &c
		loader.classesLock.Unlock()
		loader.adaptiveLock.Lock()
		loader.cachedAdaptive.Store((*instanceBox)(nil))
		loader.adaptiveErr = nil
		loader.adaptiveLock.Unlock()
		return nil
	}
	loader.classesLock.Lock()
	defer loader.classesLock.Unlock()
	if name == "" {
		return errors.Wrap(ErrIllegalArgument, "extension name == nil")
	}
	if _, ok := classes[name]; !ok {
		return errors.Wrapf(ErrIllegalState, "extension name %s not existed on extension %s", name, TypeID(loader.typ))
	}
	next := copyClasses(classes)
	next[name] = &c
	loader.cachedNames[c.Type] = name
	loader.cachedClasses.Store(next)
	loader.instances.Delete(name)
	return nil
}

func copyClasses(src map[string]*Class) map[string]*Class {
	dst := make(map[string]*Class, len(src)+1)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (loader *ExtensionLoader) holderOf(name string) *holder {
	if v, ok := loader.instances.Load(name); ok {
		return v.(*holder)
	}
	v, _ := loader.instances.LoadOrStore(name, &holder{})
	return v.(*holder)
}

/*
    @brief:构造一个扩展实例：裸实例 -> 注入 -> wrapper逐层包裹(每层也注入)
	@param [in] name:扩展名
*/
func (loader *ExtensionLoader) createExtension(name string) (instance interface{}, err error) {
	classes, err := loader.getExtensionClasses()
	if err != nil {
		return nil, err
	}
	c := classes[name]
	if c == nil {
		return nil, loader.findException(name)
	}
	defer func() {
		if r := recover(); r != nil {
			instance = nil
			err = errors.Wrapf(ErrIllegalState,
				"extension instance(name: %s, class: %s) could not be instantiated: %v",
				name, TypeID(loader.typ), r)
		}
	}()
	//同一个实现类型全局只保留一个裸实例，不同扩展点共享
	bare, ok := extensionInstances.Load(c.Type)
	if !ok {
		bare, _ = extensionInstances.LoadOrStore(c.Type, c.New())
	}
	instance = bare
	loader.injectExtension(instance)
	for _, w := range loader.cachedWrappers {
		instance = w.Wrap(instance)
		loader.injectExtension(instance)
	}
	return instance, nil
}

/*
    @brief:依赖注入，对实例中类型是已知扩展点的可设置公有字段，填入该扩展点的自适应实例
	注入失败只记日志，不影响实例返回
	@param [in] instance:被注入的实例
*/
func (loader *ExtensionLoader) injectExtension(instance interface{}) {
	if loader.objectFactory == nil || instance == nil {
		return
	}
	rv := reflect.ValueOf(instance)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	elem := rv.Elem()
	st := elem.Type()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if f.PkgPath != "" { //非公有字段
			continue
		}
		if f.Type.Kind() != reflect.Interface || !isExtensionPoint(f.Type) {
			continue
		}
		property := lowerFirst(f.Name)
		func() {
			defer func() {
				if r := recover(); r != nil {
					jlog.StdLogger.Errorf("fail to inject via field %s of interface %s: %v",
						f.Name, TypeID(loader.typ), r)
				}
			}()
			obj := loader.objectFactory.GetExtension(f.Type, property)
			if obj != nil && reflect.TypeOf(obj).Implements(f.Type) {
				elem.Field(i).Set(reflect.ValueOf(obj))
			}
		}()
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

/*
    @brief:未知名字的报错，把加载期记录的、键与名字大小写无关匹配的错误聚合成摘要
	@param [in] name:查找失败的扩展名
*/
func (loader *ExtensionLoader) findException(name string) error {
	loader.classesLock.Lock()
	defer loader.classesLock.Unlock()
	lower := strings.ToLower(name)
	var digest error
	for key, e := range loader.exceptions {
		if strings.Contains(strings.ToLower(key), lower) {
			digest = multierr.Append(digest, e)
		}
	}
	if digest == nil {
		//没有直接相关的，把全部加载错误都带上，方便排查
		for _, e := range loader.exceptions {
			digest = multierr.Append(digest, e)
		}
	}
	err := errors.Wrapf(ErrNotFound, "no such extension %s by name %s", TypeID(loader.typ), name)
	if digest != nil {
		err = errors.Wrapf(err, "possible causes: %v", digest)
	}
	return err
}

/*
   @brief:获得名字到实现的映射，只在第一次访问时真正加载描述符文件
*/
func (loader *ExtensionLoader) getExtensionClasses() (map[string]*Class, error) {
	if v := loader.cachedClasses.Load(); v != nil {
		return v.(map[string]*Class), nil
	}
	loader.classesLock.Lock()
	defer loader.classesLock.Unlock()
	if v := loader.cachedClasses.Load(); v != nil {
		return v.(map[string]*Class), nil
	}
	m, err := loader.loadExtensionClasses()
	if err != nil {
		return nil, err
	}
	loader.cachedClasses.Store(m)
	return m, nil
}

//classesLock已持有
func (loader *ExtensionLoader) loadExtensionClasses() (map[string]*Class, error) {
	loader.cachedDefaultName = loader.spi.Default
	m := map[string]*Class{}
	for _, dir := range []string{internalDirectory, userDirectory, servicesDirectory} {
		if err := loader.loadFile(m, dir); err != nil {
			return nil, err
		}
	}
	return m, nil
}

/*
    @brief:加载一个查找根下的描述符文件，一行一个条目：name[,name]*=ref 或者只有ref
	不可解析的行按行文本记录错误后继续，名字冲突和重复自适应是致命错误
	@param [in] m:名字到实现的映射，被填充
	@param [in] dir:查找根
*/
func (loader *ExtensionLoader) loadFile(m map[string]*Class, dir string) error {
	fileName := dir + TypeID(loader.typ)
	for _, data := range readDescriptors(fileName) {
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := scanner.Text()
			if i := strings.Index(line, "#"); i >= 0 {
				line = line[:i]
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			name := ""
			ref := line
			if i := strings.Index(line, "="); i > 0 {
				name = strings.TrimSpace(line[:i])
				ref = strings.TrimSpace(line[i+1:])
			}
			if ref == "" {
				continue
			}
			if err := loader.loadClass(m, line, name, ref); err != nil {
				return err
			}
		}
	}
	return nil
}

//classesLock已持有，line是记录错误用的原始行文本
func (loader *ExtensionLoader) loadClass(m map[string]*Class, line string, name string, ref string) error {
	c := findClass(ref)
	if c == nil {
		loader.exceptions[line] = errors.Errorf(
			"failed to load extension class(interface: %s, class line: %s), class is not registered",
			TypeID(loader.typ), line)
		return nil
	}
	if !c.implementsPoint(loader.typ) {
		loader.exceptions[line] = errors.Errorf(
			"failed to load extension class(interface: %s, class line: %s), class %s is not subtype of interface",
			TypeID(loader.typ), line, TypeID(c.Type))
		return nil
	}
	if c.Adaptive {
		if loader.cachedAdaptiveClass == nil {
			loader.cachedAdaptiveClass = c
		} else if loader.cachedAdaptiveClass != c {
			return errors.Wrapf(ErrDuplicateAdaptive, "extension %s: %s and %s",
				TypeID(loader.typ), TypeID(loader.cachedAdaptiveClass.Type), TypeID(c.Type))
		}
		return nil
	}
	if c.Wrap != nil {
		for _, w := range loader.cachedWrappers {
			if w == c {
				return nil
			}
		}
		loader.cachedWrappers = append(loader.cachedWrappers, c)
		return nil
	}
	if c.New == nil {
		loader.exceptions[line] = errors.Errorf(
			"failed to load extension class(interface: %s, class line: %s), class %s has no no-arg constructor",
			TypeID(loader.typ), line, TypeID(c.Type))
		return nil
	}
	if name == "" {
		name = c.ExtName
	}
	if name == "" {
		derived, err := loader.deriveName(c)
		if err != nil {
			loader.exceptions[line] = err
			return nil
		}
		name = derived
	}
	names := strings.Split(name, ",")
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}
	if c.Activate != nil {
		if _, ok := loader.cachedActivates[names[0]]; !ok {
			loader.cachedActivateNames = append(loader.cachedActivateNames, names[0])
		}
		loader.cachedActivates[names[0]] = c.Activate
	}
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := loader.cachedNames[c.Type]; !ok {
			loader.cachedNames[c.Type] = n
		}
		if exist := m[n]; exist == nil {
			m[n] = c
		} else if exist != c {
			return errors.Wrapf(ErrDuplicateName, "extension %s name %s on %s and %s",
				TypeID(loader.typ), n, TypeID(exist.Type), TypeID(c.Type))
		}
	}
	return nil
}

/*
    @brief:条目没有显式名字时，从实现类型的短名推导：去掉扩展点后缀再转小写
	比如扩展点ISerializer的实现GobSerializer推导出gob
*/
func (loader *ExtensionLoader) deriveName(c *Class) (string, error) {
	simple := c.Type.Name()
	pointSimple := strings.TrimPrefix(loader.typ.Name(), "I")
	if len(simple) > len(pointSimple) && strings.HasSuffix(simple, pointSimple) {
		return strings.ToLower(simple[:len(simple)-len(pointSimple)]), nil
	}
	return "", errors.Errorf("no such extension name for the class %s in the config of %s",
		TypeID(c.Type), TypeID(loader.typ))
}

/*
    @brief:获得自适应扩展单例
	描述符里有作者提供的自适应实现时直接用它，否则经由ICompiler按方法计划合成
	创建失败的错误会被记住，后续调用直接报同样的错
*/
func (loader *ExtensionLoader) GetAdaptiveExtension() (interface{}, error) {
	if b, ok := loader.cachedAdaptive.Load().(*instanceBox); ok && b != nil {
		return b.v, nil
	}
	loader.adaptiveLock.Lock()
	defer loader.adaptiveLock.Unlock()
	if b, ok := loader.cachedAdaptive.Load().(*instanceBox); ok && b != nil {
		return b.v, nil
	}
	if loader.adaptiveErr != nil {
		return nil, errors.Wrapf(loader.adaptiveErr, "fail to create adaptive instance of %s", TypeID(loader.typ))
	}
	instance, err := loader.createAdaptiveExtension()
	if err != nil {
		loader.adaptiveErr = err
		return nil, err
	}
	loader.cachedAdaptive.Store(&instanceBox{v: instance})
	return instance, nil
}

func (loader *ExtensionLoader) createAdaptiveExtension() (interface{}, error) {
	if _, err := loader.getExtensionClasses(); err != nil {
		return nil, err
	}
	if c := loader.cachedAdaptiveClass; c != nil {
		if c.New == nil {
			return nil, errors.Wrapf(ErrSynthesis, "adaptive class %s of extension %s has no no-arg constructor",
				TypeID(c.Type), TypeID(loader.typ))
		}
		instance := c.New()
		loader.injectExtension(instance)
		return instance, nil
	}
	//引导用的两个扩展点必须自带自适应实现，不走合成，避免自引用死循环
	if loader.typ == extensionFactoryType || loader.typ == compilerType {
		return nil, errors.Wrapf(ErrSynthesis, "extension %s requires a hand-written adaptive implementation",
			TypeID(loader.typ))
	}
	compiler, err := GetExtensionLoader(compilerType).GetAdaptiveExtension()
	if err != nil {
		return nil, err
	}
	instance, err := compiler.(ICompiler).Compile(loader)
	if err != nil {
		return nil, err
	}
	loader.injectExtension(instance)
	return instance, nil
}
