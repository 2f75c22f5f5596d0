package modem

import (
	"sync"
	"testing"
	"time"
)

func TestMonitorWaitFor(t *testing.T) {
	t.Run("predicate already true", func(t *testing.T) {
		m := newMonitor(Available)
		if v, ok := m.WaitFor(func(s ModemState) bool { return s == Available }, time.Second, nil); !ok || v != Available {
			t.Errorf("got %v, %v", v, ok)
		}
	})

	t.Run("woken by a change", func(t *testing.T) {
		m := newMonitor(Busy)
		go func() {
			time.Sleep(10 * time.Millisecond)
			m.Set(Transmitting)
			m.Set(Available)
		}()
		if v, ok := m.WaitFor(func(s ModemState) bool { return s == Available }, time.Second, nil); !ok || v != Available {
			t.Errorf("got %v, %v", v, ok)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		m := newMonitor(Busy)
		start := time.Now()
		if _, ok := m.WaitFor(func(s ModemState) bool { return s == Available }, 30*time.Millisecond, nil); ok {
			t.Error("predicate should not hold")
		}
		if time.Since(start) < 30*time.Millisecond {
			t.Error("returned before the timeout")
		}
	})

	t.Run("done", func(t *testing.T) {
		m := newMonitor(Busy)
		done := make(chan struct{})
		close(done)
		if _, ok := m.WaitFor(func(s ModemState) bool { return s == Available }, time.Minute, done); ok {
			t.Error("predicate should not hold")
		}
	})
}

func TestMonitorUpdate(t *testing.T) {
	m := newMonitor(txStatus{State: TxPending, Seq: 4})
	old, updated := m.Update(func(v txStatus) txStatus {
		v.State = TxWaiting
		return v
	})
	if old.State != TxPending || updated.State != TxWaiting || updated.Seq != 4 {
		t.Errorf("old %+v, updated %+v", old, updated)
	}
}

func TestLockBoth(t *testing.T) {
	ms := newMonitor(Available)
	tx := newMonitor(txStatus{})

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := lockBoth(ms, tx)
			ms.setLocked(ModemState(i % 3))
			tx.setLocked(txStatus{Seq: uint8(i)})
			unlock()
			ms.Get()
			tx.Get()
		}()
	}
	wg.Wait()
}

func TestStateStrings(t *testing.T) {
	if Quit.String() != "QUIT" || TxWaiting.String() != "TX_WAITING" {
		t.Error("unexpected state names")
	}
	if ModemState(42).String() != "ModemState(42)" {
		t.Errorf("got %q", ModemState(42).String())
	}
}
