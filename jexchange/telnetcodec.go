package jexchange

import (
	"bytes"
	"strings"

	"JDubboFrame/jurl"

	"github.com/pkg/errors"
)

//TelnetCodec 兜底编解码器，把字节当成按行的文本命令
//交换层帧魔数对不上的字节会落到这里
type TelnetCodec struct {
}

/*
    @brief:编码文本消息，字符串补上换行，[]byte原样写入
	@param [in] msg:字符串或者[]byte
*/
func (c *TelnetCodec) Encode(url *jurl.URL, buffer *Buffer, msg interface{}) error {
	switch m := msg.(type) {
	case string:
		buffer.WriteBytes([]byte(m))
		buffer.WriteBytes([]byte("\r\n"))
		return nil
	case []byte:
		buffer.WriteBytes(m)
		return nil
	default:
		return errors.Errorf("telnet codec only encodes text message, got %T", msg)
	}
}

/*
    @brief:解码一行文本命令，没读到换行时返回NeedMoreInput且读下标不动
*/
func (c *TelnetCodec) Decode(url *jurl.URL, buffer *Buffer) (interface{}, error) {
	data := buffer.Bytes()
	i := bytes.IndexByte(data, '\n')
	if i < 0 {
		return NeedMoreInput, nil
	}
	buffer.ReadBytes(i + 1)
	return trimCommand(data[:i+1]), nil
}

/*
    @brief:解码一段已经确定不属于交换层帧的字节，交换层魔数重同步时调用
	这段字节后面跟的就是帧，不会再有后续文本，所以没有换行也原样返回
	@param [in] data:命令字节
*/
func (c *TelnetCodec) DecodeData(url *jurl.URL, data []byte) interface{} {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return trimCommand(data[:i+1])
	}
	return string(data)
}

func trimCommand(data []byte) string {
	return strings.TrimRight(string(data), "\r\n")
}
