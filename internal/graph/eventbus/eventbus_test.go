package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTriggerOrdering(t *testing.T) {
	e := New("test", nil)
	var order []string
	e.Add(func(sender interface{}, args Args) { order = append(order, "first:"+args.Type) })
	e.Add(func(sender interface{}, args Args) { order = append(order, "second:"+args.Type) })

	e.Trigger("sender", Args{Type: "new"})

	assert.Equal(t, []string{"first:new", "second:new"}, order)
}

func TestUnsubscribe(t *testing.T) {
	e := New("test", nil)
	calls := 0
	sub := e.Subscribe(func(sender interface{}, args Args) { calls++ })
	e.Trigger(nil, Args{})
	e.Unsubscribe(sub)
	e.Trigger(nil, Args{})
	assert.Equal(t, 1, calls)
}

func TestHandlerPanicDoesNotStopOthers(t *testing.T) {
	e := New("test", nil)
	secondCalled := false
	e.Add(func(sender interface{}, args Args) { panic("boom") })
	e.Add(func(sender interface{}, args Args) { secondCalled = true })

	assert.NotPanics(t, func() { e.Trigger(nil, Args{}) })
	assert.True(t, secondCalled)
}
