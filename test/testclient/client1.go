package main

import (
	"bytes"
	"encoding/gob"
	"time"

	"JDubboFrame/event"
	"JDubboFrame/jexchange"
	"JDubboFrame/jlog"
	"JDubboFrame/jurl"
)

func main() {
	url, err := jurl.ParseURL("dubbo://127.0.0.1:20880/echo?serialization=gob&timeout=5000&heartbeat=30000")
	if err != nil {
		jlog.StdLogger.Fatal(err.Error())
	}

	client, err := jexchange.NewExchangeClient(url)
	if err != nil {
		jlog.StdLogger.Fatal(err.Error())
	}

	//监听连接事件
	listener := event.NewEventListener(nil)
	listener.RegEventCb(event.ExchangeConnectEvent, client.Publisher, func(ev event.IEvent) {
		jlog.StdLogger.Info("connected to ", ev.(*event.Event).Data)
	})
	listener.RegEventCb(event.ExchangeDisconnectEvent, client.Publisher, func(ev event.IEvent) {
		jlog.StdLogger.Warn("disconnected from ", ev.(*event.Event).Data)
	})

	if err := client.Connect(); err != nil {
		jlog.StdLogger.Fatal(err.Error())
	}
	//等连接建立
	for i := 0; i < 50 && !client.IsConnected(); i++ {
		time.Sleep(100 * time.Millisecond)
	}

	var input bytes.Buffer
	if err := gob.NewEncoder(&input).Encode("hello jdubbo"); err != nil {
		jlog.StdLogger.Fatal(err.Error())
	}

	var reply string
	call := client.Call("Echo.Say", input.Bytes(), &reply).Done()
	if call.Err != nil {
		jlog.StdLogger.Error("call failed: ", call.Err.Error())
	} else {
		jlog.StdLogger.Info("call reply: ", reply)
	}
	jexchange.ReleaseCall(call)

	client.Close()
}
