package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBroadcastToRegisteredListener(t *testing.T) {
	publisher := NewEventPublisher()
	listener := NewEventListener(nil)

	var got []interface{}
	listener.RegEventCb(ExchangeConnectEvent, publisher, func(ev IEvent) {
		got = append(got, ev.(*Event).Data)
	})

	publisher.BroadCastEvent(&Event{Type: ExchangeConnectEvent, Data: "10.0.0.1:20880"})
	publisher.BroadCastEvent(&Event{Type: ExchangeDisconnectEvent, Data: "ignored"})

	assert.Equal(t, []interface{}{"10.0.0.1:20880"}, got)
}

func TestUnregister(t *testing.T) {
	publisher := NewEventPublisher()
	listener := NewEventListener(nil)

	count := 0
	listener.RegEventCb(ExchangeDisconnectEvent, publisher, func(ev IEvent) {
		count++
	})
	publisher.BroadCastEvent(&Event{Type: ExchangeDisconnectEvent})
	listener.UnRegEventCb(ExchangeDisconnectEvent, publisher)
	publisher.BroadCastEvent(&Event{Type: ExchangeDisconnectEvent})

	assert.Equal(t, 1, count)
}

func TestPublisherStampsItself(t *testing.T) {
	publisher := NewEventPublisher()
	listener := NewEventListener(nil)

	var gotPublisher IEventPublisher
	listener.RegEventCb(ExchangeTimeoutEvent, publisher, func(ev IEvent) {
		gotPublisher = ev.GetPublisher()
	})
	publisher.BroadCastEvent(&Event{Type: ExchangeTimeoutEvent})

	assert.Equal(t, publisher, gotPublisher)
}

func TestDestroy(t *testing.T) {
	publisher := NewEventPublisher()
	listener := NewEventListener(nil)

	count := 0
	listener.RegEventCb(ExchangeConnectEvent, publisher, func(ev IEvent) {
		count++
	})
	publisher.Destroy()
	publisher.BroadCastEvent(&Event{Type: ExchangeConnectEvent})

	assert.Equal(t, 0, count)
}
