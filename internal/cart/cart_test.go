package cart

import (
	"testing"
	"time"

	"github.com/noah-isme/backend-pos/internal/pricing"
)

func TestAddMergesExistingLine(t *testing.T) {
	c := New()
	if err := c.Add("prod-1", 10.00, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.Add("prod-1", 12.00, 3); err != nil {
		t.Fatalf("add again: %v", err)
	}
	lines := c.Snapshot()
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0].Qty != 5 {
		t.Fatalf("expected qty 5, got %d", lines[0].Qty)
	}
	// price stays frozen at the first add
	if lines[0].UnitPrice != 10.00 {
		t.Fatalf("expected frozen unit price 10.00, got %v", lines[0].UnitPrice)
	}
}

func TestAddRejectsBadInput(t *testing.T) {
	c := New()
	if err := c.Add("", 10, 1); err == nil {
		t.Fatal("expected error for empty product id")
	}
	if err := c.Add("p", 10, 0); err == nil {
		t.Fatal("expected error for zero qty")
	}
	if err := c.Add("p", -1, 1); err == nil {
		t.Fatal("expected error for negative price")
	}
}

func TestSetQuantityZeroRemovesLine(t *testing.T) {
	c := New()
	_ = c.Add("prod-1", 10, 2)
	if err := c.SetQuantity("prod-1", 0); err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("expected empty cart, got %d lines", c.Len())
	}
	if err := c.SetQuantity("prod-1", 1); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for removed line, got %v", err)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	c := New()
	_ = c.Add("prod-1", 10, 1)
	_ = c.SetDiscount("prod-1", &pricing.Discount{Kind: pricing.DiscountPercentage, Value: 10})
	snap := c.Snapshot()
	snap[0].Qty = 99
	snap[0].Discount.Value = 99

	fresh := c.Snapshot()
	if fresh[0].Qty != 1 {
		t.Fatalf("snapshot mutation leaked into cart qty: %d", fresh[0].Qty)
	}
	if fresh[0].Discount.Value != 10 {
		t.Fatalf("snapshot mutation leaked into cart discount: %v", fresh[0].Discount.Value)
	}
}

func TestSetDiscountValidatesKind(t *testing.T) {
	c := New()
	_ = c.Add("prod-1", 10, 1)
	if err := c.SetDiscount("prod-1", &pricing.Discount{Kind: "bogus", Value: 5}); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err := c.SetDiscount("prod-1", &pricing.Discount{Kind: pricing.DiscountFixed, Value: -5}); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput for negative value, got %v", err)
	}
}

func TestClearEmptiesCart(t *testing.T) {
	c := New()
	_ = c.Add("a", 1, 1)
	_ = c.Add("b", 2, 1)
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("expected empty cart after clear, got %d", c.Len())
	}
}

func TestSessionsExpire(t *testing.T) {
	now := time.Now()
	s := NewSessions(time.Minute)
	s.Now = func() time.Time { return now }

	id := s.Open()
	if _, err := s.Get(id); err != nil {
		t.Fatalf("get fresh session: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := s.Get(id); err != ErrNotFound {
		t.Fatalf("expected expired session, got %v", err)
	}
}

func TestSessionsSweep(t *testing.T) {
	now := time.Now()
	s := NewSessions(time.Minute)
	s.Now = func() time.Time { return now }

	stale := s.Open()
	now = now.Add(2 * time.Minute)
	fresh := s.Open()

	if removed := s.Sweep(); removed != 1 {
		t.Fatalf("expected 1 swept session, got %d", removed)
	}
	if _, err := s.Get(fresh); err != nil {
		t.Fatalf("fresh session should survive sweep: %v", err)
	}
	if _, err := s.Get(stale); err != ErrNotFound {
		t.Fatalf("stale session should be gone, got %v", err)
	}
}
