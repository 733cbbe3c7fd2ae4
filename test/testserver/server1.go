package main

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"

	"JDubboFrame/jexchange"
	"JDubboFrame/jlog"
	"JDubboFrame/jurl"
)

//EchoHandler 回显服务，把收到的文本加上"echo: "前缀返回
type EchoHandler struct {
}

func (h *EchoHandler) Reply(url *jurl.URL, request *jexchange.Request) (interface{}, error) {
	inv, ok := request.Data.(*jexchange.Invocation)
	if !ok {
		return nil, fmt.Errorf("unexpected payload %T", request.Data)
	}
	var text string
	if err := gob.NewDecoder(bytes.NewReader(inv.Input)).Decode(&text); err != nil {
		return nil, err
	}
	jlog.StdLogger.Info("echo request: ", inv.ServiceMethod, " ", text)
	return "echo: " + text, nil
}

func main() {
	url, err := jurl.ParseURL("dubbo://0.0.0.0:20880/echo?serialization=gob&accesslog=true&profile=true")
	if err != nil {
		jlog.StdLogger.Fatal(err.Error())
	}

	server, err := jexchange.NewExchangeServer(url, &EchoHandler{})
	if err != nil {
		jlog.StdLogger.Fatal(err.Error())
	}
	if err := server.Start(); err != nil {
		jlog.StdLogger.Fatal(err.Error())
	}
	jlog.StdLogger.Info("echo server started on ", url.GetAddress())

	for {
		time.Sleep(time.Hour)
	}
}
