// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeNowAdvances(t *testing.T) {
	fake := Fake(epoch)
	fake.Advance(90 * time.Second)
	if got, want := fake.Now(), epoch.Add(90*time.Second); !got.Equal(want) {
		t.Fatalf("Now() = %v, want %v", got, want)
	}
}

func TestFakeAfter(t *testing.T) {
	fake := Fake(epoch)
	channel := fake.After(2 * time.Second)

	fake.Advance(time.Second)
	select {
	case <-channel:
		t.Fatal("After fired one second early")
	default:
	}

	fake.Advance(time.Second)
	select {
	case fired := <-channel:
		if want := epoch.Add(2 * time.Second); !fired.Equal(want) {
			t.Errorf("fired at %v, want %v", fired, want)
		}
	default:
		t.Fatal("After did not fire at its deadline")
	}
}

func TestFakeAfterNonPositiveFiresImmediately(t *testing.T) {
	fake := Fake(epoch)
	for _, d := range []time.Duration{0, -time.Second} {
		select {
		case <-fake.After(d):
		default:
			t.Errorf("After(%v) did not fire immediately", d)
		}
	}
}

func TestFakeAfterFuncOrder(t *testing.T) {
	fake := Fake(epoch)
	var order []string
	fake.AfterFunc(3*time.Second, func() { order = append(order, "third") })
	fake.AfterFunc(time.Second, func() { order = append(order, "first") })
	fake.AfterFunc(2*time.Second, func() { order = append(order, "second") })

	fake.Advance(5 * time.Second)

	want := []string{"first", "second", "third"}
	if len(order) != len(want) {
		t.Fatalf("fired %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("fired %v, want %v", order, want)
		}
	}
}

func TestFakeAfterFuncStop(t *testing.T) {
	fake := Fake(epoch)
	fired := false
	timer := fake.AfterFunc(time.Second, func() { fired = true })

	if fake.PendingTimers() != 1 {
		t.Fatalf("PendingTimers() = %d, want 1", fake.PendingTimers())
	}
	if !timer.Stop() {
		t.Fatal("Stop() = false for a pending timer")
	}
	if timer.Stop() {
		t.Error("second Stop() = true")
	}
	if fake.PendingTimers() != 0 {
		t.Errorf("PendingTimers() after Stop = %d, want 0", fake.PendingTimers())
	}

	fake.Advance(time.Minute)
	if fired {
		t.Error("stopped timer fired")
	}
}

func TestFakeCallbackRegistersDueTimer(t *testing.T) {
	fake := Fake(epoch)
	fired := false
	fake.AfterFunc(time.Second, func() {
		fake.AfterFunc(time.Second, func() { fired = true })
	})

	fake.Advance(2 * time.Second)
	if fired {
		t.Fatal("nested timer fired although its deadline is now+1s from the callback's view")
	}
	fake.Advance(time.Second)
	if !fired {
		t.Fatal("nested timer did not fire")
	}
}

func TestFakeWaitForTimers(t *testing.T) {
	fake := Fake(epoch)
	woke := make(chan struct{})
	go func() {
		fake.Sleep(5 * time.Second)
		close(woke)
	}()

	fake.WaitForTimers(1)
	fake.Advance(5 * time.Second)

	select {
	case <-woke:
	case <-time.After(5 * time.Second): //nolint:realclock // test hang prevention
		t.Fatal("Sleep did not return after Advance")
	}
}
