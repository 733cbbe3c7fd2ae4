package jexchange

import (
	mempool "JDubboFrame/memorypool"
)

//帧缓冲区用的切片内存池，小包居多，给三档大小
var bufSlicePoolList = mempool.NewSlicePoolList(3,
	mempool.NewSlicePool(1, 4096, 512),
	mempool.NewSlicePool(4097, 40960, 4096),
	mempool.NewSlicePool(40961, 417792, 16384),
)

//Buffer 带读写下标的帧缓冲区，codec在上面编解码，传输层在上面追加字节
//读下标到写下标之间是未消费的数据
type Buffer struct {
	buf         []byte
	readerIndex int
	writerIndex int
}

/*
    @brief:构造一个缓冲区
	@param [in] initialCap:初始容量
*/
func NewBuffer(initialCap int) *Buffer {
	if initialCap <= 0 {
		initialCap = 1024
	}
	return &Buffer{buf: bufSlicePoolList.MakeByteSlice(initialCap)}
}

/*
   @brief:未消费的字节数
*/
func (b *Buffer) ReadableBytes() int {
	return b.writerIndex - b.readerIndex
}

func (b *Buffer) ReaderIndex() int {
	return b.readerIndex
}

func (b *Buffer) SetReaderIndex(i int) {
	if i < 0 {
		i = 0
	}
	if i > b.writerIndex {
		i = b.writerIndex
	}
	b.readerIndex = i
}

func (b *Buffer) WriterIndex() int {
	return b.writerIndex
}

/*
    @brief:移动写下标，往回移动时丢弃已写数据，往前移动时留出的区域由调用方回填
	编码时codec用它先给帧头留位置
*/
func (b *Buffer) SetWriterIndex(i int) {
	if i < b.readerIndex {
		i = b.readerIndex
	}
	b.ensure(i - b.writerIndex)
	b.writerIndex = i
}

/*
    @brief:读出n个字节，返回的切片指向内部存储，在下一次DiscardReadBytes之前有效
	@param [in] n:字节数
*/
func (b *Buffer) ReadBytes(n int) []byte {
	if n > b.ReadableBytes() {
		n = b.ReadableBytes()
	}
	out := b.buf[b.readerIndex : b.readerIndex+n]
	b.readerIndex += n
	return out
}

/*
   @brief:未消费数据的只读视图
*/
func (b *Buffer) Bytes() []byte {
	return b.buf[b.readerIndex:b.writerIndex]
}

/*
   @brief:在写下标处追加数据
*/
func (b *Buffer) WriteBytes(p []byte) {
	b.ensure(len(p))
	copy(b.buf[b.writerIndex:], p)
	b.writerIndex += len(p)
}

//io.Writer实现，序列化器直接往缓冲区里写
func (b *Buffer) Write(p []byte) (int, error) {
	b.WriteBytes(p)
	return len(p), nil
}

/*
    @brief:在指定下标处覆盖写入，不移动写下标，用于回填帧头
	@param [in] index:起始下标
	@param [in] p:数据
*/
func (b *Buffer) SetBytes(index int, p []byte) {
	need := index + len(p) - len(b.buf)
	if need > 0 {
		b.grow(need)
	}
	copy(b.buf[index:], p)
}

/*
   @brief:丢弃已读数据，把未读数据挪到头部，读循环每轮解码后调用
*/
func (b *Buffer) DiscardReadBytes() {
	if b.readerIndex == 0 {
		return
	}
	copy(b.buf, b.buf[b.readerIndex:b.writerIndex])
	b.writerIndex -= b.readerIndex
	b.readerIndex = 0
}

/*
   @brief:释放内部存储回内存池，之后缓冲区不可再用
*/
func (b *Buffer) Release() {
	if b.buf != nil {
		bufSlicePoolList.ReleaseByteSlice(b.buf)
		b.buf = nil
	}
	b.readerIndex = 0
	b.writerIndex = 0
}

//保证写下标之后还能放下n个字节
func (b *Buffer) ensure(n int) {
	if b.writerIndex+n <= len(b.buf) {
		return
	}
	b.grow(b.writerIndex + n - len(b.buf))
}

func (b *Buffer) grow(n int) {
	newCap := len(b.buf) * 2
	if newCap < len(b.buf)+n {
		newCap = len(b.buf) + n
	}
	next := bufSlicePoolList.MakeByteSlice(newCap)
	copy(next, b.buf[:b.writerIndex])
	bufSlicePoolList.ReleaseByteSlice(b.buf)
	b.buf = next
}
