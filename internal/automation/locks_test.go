package automation

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPhoneLocksSerializeSamePhone(t *testing.T) {
	l := newPhoneLocks()
	unlock := l.Lock("9198")

	acquired := make(chan struct{})
	go func() {
		release := l.Lock("9198")
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while the first was held")
	case <-time.After(50 * time.Millisecond):
	}
	unlock()
	<-acquired

	assert.Eventually(t, func() bool { return l.size() == 0 }, time.Second, 5*time.Millisecond)
}

func TestPhoneLocksAllowOtherPhones(t *testing.T) {
	l := newPhoneLocks()
	unlock := l.Lock("a")
	defer unlock()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.Lock("b")()
	}()
	wg.Wait()
	assert.Equal(t, 1, l.size())
}
