package jexchange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingRegisterAndTake(t *testing.T) {
	store := NewPendingStore(time.Minute)

	req := NewRequest()
	call := NewCall()
	call.Seq = req.Id
	call.Request = req
	store.Register(call)
	assert.Equal(t, 1, store.Len())

	//只看不取
	assert.Same(t, call, store.GetCall(req.Id))
	assert.Equal(t, 1, store.Len())

	got := store.Take(req.Id)
	assert.Same(t, call, got)
	assert.Equal(t, 0, store.Len())

	//重复取拿不到
	assert.Nil(t, store.Take(req.Id))
	ReleaseCall(call)
}

func TestPendingTakeBeforeRegister(t *testing.T) {
	store := NewPendingStore(time.Minute)

	//迟到的响应先到，表里查不到也不留痕迹
	assert.Nil(t, store.Take(12345))
	assert.Nil(t, store.GetCall(12345))
	assert.Equal(t, 0, store.Len())
}

func TestPendingCancel(t *testing.T) {
	store := NewPendingStore(time.Minute)

	req := NewRequest()
	call := NewCall()
	call.Seq = req.Id
	store.Register(call)

	store.Cancel(req.Id)
	done := call.Done()
	require.Error(t, done.Err)
	assert.Contains(t, done.Err.Error(), "canceled")
	assert.Equal(t, 0, store.Len())
	ReleaseCall(call)
}

func TestPendingTimeout(t *testing.T) {
	store := NewPendingStore(time.Second)

	req := NewRequest()
	call := NewCall()
	call.Seq = req.Id
	store.Register(call)

	select {
	case done := <-callDone(call):
		require.Error(t, done.Err)
		assert.Contains(t, done.Err.Error(), "takes more than")
		assert.Equal(t, 0, store.Len())
	case <-time.After(10 * time.Second):
		t.Fatal("timeout timer never fired")
	}
	ReleaseCall(call)
}

func callDone(call *Call) chan *Call {
	ch := make(chan *Call, 1)
	go func() {
		ch <- call.Done()
	}()
	return ch
}

func TestCallPoolReuse(t *testing.T) {
	call := NewCall()
	call.Seq = 42
	call.Err = assert.AnError
	ReleaseCall(call)

	again := NewCall()
	defer ReleaseCall(again)
	assert.Equal(t, uint64(0), again.Seq)
	assert.Nil(t, again.Err)
}
