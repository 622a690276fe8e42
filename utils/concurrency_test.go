package utils

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestSplitWork(t *testing.T) {
	const workSize = 1000
	var seen [workSize]atomic.Uint32
	var inits atomic.Int32

	err := SplitWork(0, workSize, func(workIndex uint64, routineIndex int) error {
		seen[workIndex].Add(1)
		return nil
	}, func(routines, routineIndex int) error {
		inits.Add(1)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	for i := range seen {
		if n := seen[i].Load(); n != 1 {
			t.Fatalf("index %d processed %d times", i, n)
		}
	}
	if inits.Load() == 0 {
		t.Errorf("init was not called")
	}
}

func TestSplitWork_Error(t *testing.T) {
	expected := errors.New("stop")
	err := SplitWork(2, 64, func(workIndex uint64, routineIndex int) error {
		if workIndex == 10 {
			return expected
		}
		return nil
	}, nil)
	if !errors.Is(err, expected) {
		t.Fatalf("expected error to propagate, got %v", err)
	}
}

func TestSplitWork_Small(t *testing.T) {
	var count atomic.Uint64
	if err := SplitWork(16, 3, func(workIndex uint64, routineIndex int) error {
		if routineIndex >= 3 {
			return errors.New("too many routines")
		}
		count.Add(1)
		return nil
	}, nil); err != nil {
		t.Fatal(err)
	}
	if count.Load() != 3 {
		t.Errorf("expected 3 items, got %d", count.Load())
	}
}
