package event

import (
	"fmt"
	"runtime"
	"sync"

	"JDubboFrame/jlog"
)

type EventCallBack func(event IEvent)

//Event 一个事件
type Event struct {
	Type      EventType       //事件类型
	Data      interface{}     //事件数据
	Publisher IEventPublisher //事件发出者，广播时由publisher补上
}

//EventListener 事件监听者，没有事件通道时回调直接在发布者的协程里执行
type EventListener struct {
	IEventChannel

	locker sync.RWMutex
	//记录listener已经监听的publisher及相应的回调函数
	mapBindPublisherCb map[EventType]map[IEventPublisher]EventCallBack
}

//EventPublisher 事件发布者
type EventPublisher struct {
	locker sync.RWMutex
	//记录该publisher已经注册的listener
	mapRegListener map[EventType]map[IEventListener]interface{}
}

/*
    @brief:构造监听者
	@param [in] eventChannel:事件投递通道，nil时事件直接在发布协程里处理
*/
func NewEventListener(eventChannel IEventChannel) IEventListener {
	e := &EventListener{}
	e.IEventChannel = eventChannel
	e.mapBindPublisherCb = map[EventType]map[IEventPublisher]EventCallBack{}
	return e
}

/*
   @brief:构造发布者
*/
func NewEventPublisher() IEventPublisher {
	e := &EventPublisher{}
	e.mapRegListener = map[EventType]map[IEventListener]interface{}{}
	return e
}

/*
    @brief:注册listener监听publisher的eventType事件
	@param [in] eventType:监听事件类型
	@param [in] publisher:将要发出事件的publisher
	@param [in] callback:回调函数
*/
func (listener *EventListener) RegEventCb(eventType EventType, publisher IEventPublisher, callback EventCallBack) {
	publisher.addRegListenerInfo(eventType, listener)
	listener.addBindEvent(eventType, publisher, callback)
}

/*
    @brief:注销listener对publisher的eventType事件的监听
	@param [in] eventType:注销的事件类型
	@param [in] publisher:发出事件的publisher
*/
func (listener *EventListener) UnRegEventCb(eventType EventType, publisher IEventPublisher) {
	publisher.removeRegListenerInfo(eventType, listener)
	listener.removeBindEvent(eventType, publisher)
}

/*
    @brief:事件送达，有事件通道时走通道，否则就地处理
*/
func (listener *EventListener) PushEvent(ev IEvent) error {
	if listener.IEventChannel != nil {
		return listener.IEventChannel.PushEvent(ev)
	}
	listener.EventHandler(ev)
	return nil
}

/*
    @brief:listener处理事件
	@param [in] ev:处理的事件
*/
func (listener *EventListener) EventHandler(ev IEvent) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			l := runtime.Stack(buf, false)
			errString := fmt.Sprint(r)
			jlog.StdLogger.Error("core dump info[", errString, "]\n", string(buf[:l]))
		}
	}()

	listener.locker.RLock()
	callback, ok := listener.mapBindPublisherCb[ev.GetEventType()][ev.GetPublisher()]
	listener.locker.RUnlock()
	if !ok {
		return
	}
	callback(ev)
}

func (listener *EventListener) addBindEvent(eventType EventType, publisher IEventPublisher, callback EventCallBack) {
	listener.locker.Lock()
	defer listener.locker.Unlock()

	if _, ok := listener.mapBindPublisherCb[eventType]; !ok {
		listener.mapBindPublisherCb[eventType] = map[IEventPublisher]EventCallBack{}
	}
	listener.mapBindPublisherCb[eventType][publisher] = callback
}

func (listener *EventListener) removeBindEvent(eventType EventType, publisher IEventPublisher) {
	listener.locker.Lock()
	defer listener.locker.Unlock()
	if _, ok := listener.mapBindPublisherCb[eventType]; ok {
		delete(listener.mapBindPublisherCb[eventType], publisher)
	}
}

/*
    @brief:publisher向单个listener发布事件
	@param [in] ev:发布的事件
	@param [in] listener:接受事件的listener
*/
func (publisher *EventPublisher) PublishEvent(ev IEvent, listener IEventListener) {
	listener.PushEvent(ev)
}

/*
    @brief:publisher广播事件给所有注册了该事件类型的listener
	回调可能再注册监听，所以先拷贝名单再在锁外投递
	@param [in] ev:广播的事件
*/
func (publisher *EventPublisher) BroadCastEvent(ev IEvent) {
	if e, ok := ev.(*Event); ok && e.Publisher == nil {
		e.Publisher = publisher
	}
	publisher.locker.RLock()
	var listeners []IEventListener
	for eventType, mapListener := range publisher.mapRegListener {
		if eventType != ev.GetEventType() {
			continue
		}
		for listener := range mapListener {
			listeners = append(listeners, listener)
		}
	}
	publisher.locker.RUnlock()

	for _, listener := range listeners {
		publisher.PublishEvent(ev, listener)
	}
}

/*
   @brief:取消publisher，所有listener不再监听它
*/
func (publisher *EventPublisher) Destroy() {
	publisher.locker.Lock()
	type pair struct {
		t EventType
		l IEventListener
	}
	var pairs []pair
	for eventType, mapListener := range publisher.mapRegListener {
		for listener := range mapListener {
			pairs = append(pairs, pair{t: eventType, l: listener})
		}
	}
	publisher.locker.Unlock()

	for _, p := range pairs {
		p.l.UnRegEventCb(p.t, publisher)
	}
}

func (publisher *EventPublisher) addRegListenerInfo(eventType EventType, listener IEventListener) {
	publisher.locker.Lock()
	defer publisher.locker.Unlock()
	if publisher.mapRegListener == nil {
		publisher.mapRegListener = map[EventType]map[IEventListener]interface{}{}
	}
	if _, ok := publisher.mapRegListener[eventType]; !ok {
		publisher.mapRegListener[eventType] = map[IEventListener]interface{}{}
	}
	publisher.mapRegListener[eventType][listener] = nil
}

func (publisher *EventPublisher) removeRegListenerInfo(eventType EventType, listener IEventListener) {
	publisher.locker.Lock()
	defer publisher.locker.Unlock()
	if _, ok := publisher.mapRegListener[eventType]; ok {
		delete(publisher.mapRegListener[eventType], listener)
	}
}

func (e *Event) GetEventType() EventType {
	return e.Type
}

func (e *Event) GetPublisher() IEventPublisher {
	return e.Publisher
}
