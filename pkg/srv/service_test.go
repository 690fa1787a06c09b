package srv

import (
	"context"
	"errors"
	"testing"
)

func TestStopServices_ReverseOrder(t *testing.T) {
	var order []int
	services := []Service{
		NewCleanup(func() error { order = append(order, 1); return nil }),
		NewCleanup(func() error { order = append(order, 2); return errors.New("busy") }),
		NewCleanup(func() error { order = append(order, 3); return nil }),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	StopServices(ctx, services)

	want := []int{3, 2, 1}
	if len(order) != len(want) {
		t.Fatalf("stopped %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("stopped %v, want %v", order, want)
		}
	}
}

func TestNewCleanup_Nil(t *testing.T) {
	s := NewCleanup(nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
}
