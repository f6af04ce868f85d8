package watcher

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDebouncer_SinglePath(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add("hello-world")

	select {
	case paths := <-d.Output():
		if diff := cmp.Diff([]string{"hello-world"}, paths); diff != "" {
			t.Errorf("batch mismatch (-want +got):\n%s", diff)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for debounced batch")
	}
}

func TestDebouncer_CoalescesAndSorts(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	for _, p := range []string{"b", "a", "b", "c/d", "a"} {
		d.Add(p)
	}

	select {
	case paths := <-d.Output():
		if diff := cmp.Diff([]string{"a", "b", "c/d"}, paths); diff != "" {
			t.Errorf("batch mismatch (-want +got):\n%s", diff)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for debounced batch")
	}

	select {
	case paths := <-d.Output():
		t.Errorf("unexpected second batch %v", paths)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestDebouncer_Stop(t *testing.T) {
	d := NewDebouncer(time.Hour)
	d.Add("pending")
	d.Stop()
	d.Stop()

	// Adds after stop are ignored and the output is closed.
	d.Add("late")
	if _, ok := <-d.Output(); ok {
		t.Error("Output() still open after Stop()")
	}
}
