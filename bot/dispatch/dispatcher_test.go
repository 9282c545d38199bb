package dispatch_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/ezloot/LOOT-SERVICES/bot/dispatch"
)

func TestSameUserTasksRunInOrder(t *testing.T) {
	d := dispatch.NewDispatcher(4, 8)
	d.Start()

	var mu sync.Mutex
	var got []int
	const n = 100

	for i := 0; i < n; i++ {
		i := i
		if err := d.Dispatch("user-1", func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}); err != nil {
			t.Fatalf("Dispatch: %v", err)
		}
	}
	d.Stop()

	if len(got) != n {
		t.Fatalf("ran %d tasks, want %d", len(got), n)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("task order broken at %d: got %d", i, v)
		}
	}
}

func TestStopDrainsAllWorkers(t *testing.T) {
	d := dispatch.NewDispatcher(3, 4)
	d.Start()

	var mu sync.Mutex
	ran := 0
	users := []string{"a", "b", "c", "d", "e"}
	for _, u := range users {
		for i := 0; i < 10; i++ {
			if err := d.Dispatch(u, func() {
				mu.Lock()
				ran++
				mu.Unlock()
			}); err != nil {
				t.Fatalf("Dispatch: %v", err)
			}
		}
	}
	d.Stop()

	if ran != len(users)*10 {
		t.Errorf("ran %d tasks, want %d", ran, len(users)*10)
	}
}

func TestDispatchAfterStop(t *testing.T) {
	d := dispatch.NewDispatcher(1, 1)
	d.Start()
	d.Stop()

	err := d.Dispatch("user-1", func() {})
	if !errors.Is(err, dispatch.ErrStopped) {
		t.Errorf("Dispatch after Stop = %v, want ErrStopped", err)
	}
}
