package reactive

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueSetNotifiesInOrder(t *testing.T) {
	v := NewValue(1)

	var got []int
	unsubscribe := v.Subscribe(func(x int) { got = append(got, x) })

	v.Set(2)
	v.Update(func(x int) int { return x * 10 })
	assert.Equal(t, 20, v.Get())
	assert.Equal(t, []int{2, 20}, got)

	unsubscribe()
	unsubscribe()
	v.Set(3)
	assert.Equal(t, []int{2, 20}, got)
}

func TestDeriveRecomputesOnAnyDependency(t *testing.T) {
	a := NewValue(1)
	b := NewValue(2)

	calls := 0
	sum := Derive(func() int {
		calls++
		return a.Get() + b.Get()
	}, a, b)

	assert.Equal(t, 3, sum.Get())
	assert.Equal(t, 1, calls)

	a.Set(10)
	assert.Equal(t, 12, sum.Get())

	b.Set(5)
	assert.Equal(t, 15, sum.Get())
	assert.Equal(t, 3, calls)
}

func TestDeriveChains(t *testing.T) {
	base := NewValue(2)
	double := Derive(func() int { return base.Get() * 2 }, base)
	plusOne := Derive(func() int { return double.Get() + 1 }, double)

	var seen []int
	plusOne.Subscribe(func(x int) { seen = append(seen, x) })

	base.Set(5)
	assert.Equal(t, 11, plusOne.Get())
	assert.Equal(t, []int{11}, seen)
}

func TestDeriveCloseStopsRecomputation(t *testing.T) {
	v := NewValue("a")
	d := Derive(func() string { return v.Get() + "!" }, v)

	d.Close()
	v.Set("b")
	assert.Equal(t, "a!", d.Get())
	d.Close()
}

func TestDeriveConvergesUnderConcurrentWrites(t *testing.T) {
	a := NewValue(0)
	b := NewValue(0)
	sum := Derive(func() int { return a.Get() + b.Get() }, a, b)

	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			a.Update(func(x int) int { return x + 1 })
		}(i)
		go func(n int) {
			defer wg.Done()
			b.Update(func(x int) int { return x + 2 })
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, a.Get())
	assert.Equal(t, 200, b.Get())
	assert.Equal(t, 300, sum.Get())
}
