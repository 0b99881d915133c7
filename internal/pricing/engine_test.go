package pricing

import (
	"math"
	"math/rand"
	"testing"
)

func TestComputePlainCart(t *testing.T) {
	lines := []Line{{ProductID: "a", UnitPrice: 10.00, Qty: 2}}
	got := Compute(lines, 0.08)
	if Round2(got.Subtotal) != 20.00 {
		t.Fatalf("expected subtotal 20.00, got %v", got.Subtotal)
	}
	if Round2(got.Tax) != 1.60 {
		t.Fatalf("expected tax 1.60, got %v", got.Tax)
	}
	if Round2(got.Total) != 21.60 {
		t.Fatalf("expected total 21.60, got %v", got.Total)
	}
}

func TestComputePercentageDiscount(t *testing.T) {
	lines := []Line{{
		ProductID: "a",
		UnitPrice: 50.00,
		Qty:       1,
		Discount:  &Discount{Kind: DiscountPercentage, Value: 10},
	}}
	if got := EffectivePrice(lines[0]); Round2(got) != 45.00 {
		t.Fatalf("expected effective price 45.00, got %v", got)
	}
	summary := Compute(lines, 0)
	if Round2(summary.Subtotal) != 45.00 {
		t.Fatalf("expected subtotal 45.00, got %v", summary.Subtotal)
	}
	if Round2(summary.Discount) != 5.00 {
		t.Fatalf("expected discount 5.00, got %v", summary.Discount)
	}
}

func TestEffectivePriceNeverNegative(t *testing.T) {
	cases := []Line{
		{UnitPrice: 10, Qty: 1, Discount: &Discount{Kind: DiscountFixed, Value: 25}},
		{UnitPrice: 10, Qty: 1, Discount: &Discount{Kind: DiscountPercentage, Value: 150}},
		{UnitPrice: 10, Qty: 1, Discount: &Discount{Kind: DiscountPercentage, Value: -5}},
		{UnitPrice: 0, Qty: 1, Discount: &Discount{Kind: DiscountFixed, Value: 1}},
	}
	for i, l := range cases {
		if got := EffectivePrice(l); got < 0 {
			t.Fatalf("case %d: effective price went negative: %v", i, got)
		}
	}
}

func TestComputeMatchesReferenceSum(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for iter := 0; iter < 500; iter++ {
		n := 1 + rng.Intn(8)
		lines := make([]Line, 0, n)
		for i := 0; i < n; i++ {
			l := Line{
				ProductID: "p",
				UnitPrice: math.Floor(rng.Float64()*10000) / 100,
				Qty:       1 + rng.Intn(9),
			}
			switch rng.Intn(3) {
			case 1:
				l.Discount = &Discount{Kind: DiscountPercentage, Value: rng.Float64() * 120}
			case 2:
				l.Discount = &Discount{Kind: DiscountFixed, Value: rng.Float64() * 150}
			}
			lines = append(lines, l)
		}
		taxRate := rng.Float64()

		var reference float64
		for _, l := range lines {
			d := 0.0
			if l.Discount != nil {
				if l.Discount.Kind == DiscountPercentage {
					d = l.UnitPrice * l.Discount.Value / 100
				} else {
					d = l.Discount.Value
				}
				if d < 0 {
					d = 0
				}
				if d > l.UnitPrice {
					d = l.UnitPrice
				}
			}
			reference += (l.UnitPrice - d) * float64(l.Qty)
		}

		got := Compute(lines, taxRate)
		if math.Abs(got.Subtotal-reference) > 1e-9 {
			t.Fatalf("iter %d: subtotal %v does not match reference %v", iter, got.Subtotal, reference)
		}
		if math.Abs(got.Tax-got.Subtotal*taxRate) > 1e-9 {
			t.Fatalf("iter %d: tax %v != subtotal*rate %v", iter, got.Tax, got.Subtotal*taxRate)
		}
		if math.Abs(got.Total-(got.Subtotal+got.Tax)) > 1e-9 {
			t.Fatalf("iter %d: total %v != subtotal+tax", iter, got.Total)
		}
	}
}

func TestComputeSkipsNonPositiveQty(t *testing.T) {
	lines := []Line{
		{ProductID: "a", UnitPrice: 5, Qty: 0},
		{ProductID: "b", UnitPrice: 5, Qty: -3},
		{ProductID: "c", UnitPrice: 5, Qty: 1},
	}
	got := Compute(lines, 0)
	if got.Subtotal != 5 {
		t.Fatalf("expected subtotal 5, got %v", got.Subtotal)
	}
}

func TestRound2HalfEven(t *testing.T) {
	cases := map[float64]float64{
		0.125:  0.12, // exact tie rounds to even
		0.375:  0.38,
		2.625:  2.62,
		21.604: 21.60,
		21.609: 21.61,
		-0.125: -0.12,
	}
	for in, want := range cases {
		if got := Round2(in); got != want {
			t.Fatalf("Round2(%v) = %v, want %v", in, got, want)
		}
	}
}
