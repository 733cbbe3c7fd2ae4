package jexchange

import (
	"encoding/gob"
)

//Invocation 一次远程调用的描述，作为请求的载荷走序列化
//方法参数由上层自行编码进Input，交换层不关心参数的具体类型
type Invocation struct {
	ServiceMethod string //形如 Service.Method
	Input         []byte //编码后的方法参数
}

func init() {
	//泛化解码时gob需要认识载荷类型
	gob.Register(&Invocation{})
}

//实现jext.IInvocation，自适应分发按方法名查方法级参数
func (inv *Invocation) GetMethodName() string {
	return inv.ServiceMethod
}
