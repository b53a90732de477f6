package realtime

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// fakeSession ghi lại các frame đã nhận, có thể giả lập connection chết
type fakeSession struct {
	mu     sync.Mutex
	key    string
	dead   bool
	frames []string
}

func (f *fakeSession) Key() string { return f.key }

func (f *fakeSession) Send(destination string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.dead {
		return errors.New("connection closed")
	}
	f.frames = append(f.frames, destination)
	return nil
}

func (f *fakeSession) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func TestRegisterAndFanOut(t *testing.T) {
	h := NewHub(zap.NewNop())
	a := &fakeSession{key: "sale-1"}
	b := &fakeSession{key: "sale-2"}

	h.RegisterSale(a)
	h.RegisterSale(b)
	assert.Equal(t, 2, h.SaleCount())

	h.SendToSales(DestSale, map[string]interface{}{"id": 1})

	assert.Equal(t, 1, a.count())
	assert.Equal(t, 1, b.count())
}

func TestFanOutSurvivesDeadSession(t *testing.T) {
	h := NewHub(zap.NewNop())
	dead := &fakeSession{key: "sale-1", dead: true}
	alive := &fakeSession{key: "sale-2"}

	h.RegisterSale(dead)
	h.RegisterSale(alive)

	// Không panic, session sống vẫn nhận được
	h.SendToSales(DestSale, "x")
	assert.Equal(t, 1, alive.count())
}

func TestUnregisterSaleStopsDelivery(t *testing.T) {
	h := NewHub(zap.NewNop())
	s := &fakeSession{key: "sale-1"}

	h.RegisterSale(s)
	h.UnregisterSale("sale-1")
	assert.Equal(t, 0, h.SaleCount())

	h.SendToSales(DestSale, "x")
	assert.Equal(t, 0, s.count())
}

func TestSendToUserOfflineIsNoop(t *testing.T) {
	h := NewHub(zap.NewNop())

	// Không có user nào online, không panic, không lỗi
	h.SendToUser("42", DestUser, "x")
}

func TestSendToUserDelivers(t *testing.T) {
	h := NewHub(zap.NewNop())
	u := &fakeSession{key: "42"}

	h.RegisterUser(u)
	h.SendToUser("42", DestUser, "x")
	assert.Equal(t, 1, u.count())
}

func TestUnregisterUserIgnoresStaleSession(t *testing.T) {
	h := NewHub(zap.NewNop())
	old := &fakeSession{key: "42"}
	cur := &fakeSession{key: "42"}

	h.RegisterUser(old)
	h.RegisterUser(cur) // reconnect ghi đè

	// Cleanup của connection cũ không được gỡ connection mới
	h.UnregisterUser(old)
	h.SendToUser("42", DestUser, "x")
	assert.Equal(t, 1, cur.count())
}

func TestConcurrentRegisterUnregister(t *testing.T) {
	h := NewHub(zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := &fakeSession{key: "sale"}
			for j := 0; j < 100; j++ {
				h.RegisterSale(s)
				h.SendToSales(DestSale, j)
				h.UnregisterSale("sale")
			}
		}(i)
	}
	wg.Wait()
}
