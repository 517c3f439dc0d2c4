package broadcast

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBridge_PublishInRegistrationOrder(t *testing.T) {
	b := New()

	var got []string

	b.Register(ObserverFunc(func() { got = append(got, "first") }))
	b.Register(ObserverFunc(func() { got = append(got, "second") }))
	b.Register(ObserverFunc(func() { got = append(got, "third") }))

	b.Publish()

	assert.Equal(t, []string{"first", "second", "third"}, got)
}

func TestBridge_Unregister(t *testing.T) {
	b := New()

	var a, c int

	idA := b.Register(ObserverFunc(func() { a++ }))
	b.Register(ObserverFunc(func() { c++ }))
	assert.Equal(t, 2, b.Len())

	b.Publish()
	b.Unregister(idA)
	b.Publish()

	assert.Equal(t, 1, a)
	assert.Equal(t, 2, c)
	assert.Equal(t, 1, b.Len())

	b.Unregister(idA)
	b.Unregister(ID(999))
	assert.Equal(t, 1, b.Len())
}

func TestBridge_PublishWithoutObservers(t *testing.T) {
	b := New()

	assert.NotPanics(t, b.Publish)
	assert.Zero(t, b.Len())
}

func TestBridge_UnregisterFromCallback(t *testing.T) {
	b := New()

	var (
		id    ID
		calls int
	)

	id = b.Register(ObserverFunc(func() {
		calls++
		b.Unregister(id)
	}))

	b.Publish()
	b.Publish()

	assert.Equal(t, 1, calls)
	assert.Zero(t, b.Len())
}

func TestBridge_ConcurrentRegistration(t *testing.T) {
	b := New()

	var wg sync.WaitGroup

	for range 50 {
		wg.Add(2)

		go func() {
			defer wg.Done()

			id := b.Register(ObserverFunc(func() {}))
			b.Unregister(id)
		}()

		go func() {
			defer wg.Done()

			b.Publish()
		}()
	}

	wg.Wait()
	assert.Zero(t, b.Len())
}
