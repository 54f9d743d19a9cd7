package catalog

import (
	"errors"
	"sync"
	"testing"

	"github.com/fairyhunter13/marketplace-client/internal/model"
)

func sampleProducts() []model.Product {
	return []model.Product{
		{
			ID:   "p1",
			Code: "P-001",
			Name: "first",
			Options: []model.Option{
				{ID: "optA", Code: "A", Name: "small", UnitPrice: 1500, MaxQuantity: 5},
				{ID: "optB", Code: "B", Name: "large", UnitPrice: 2500, MaxQuantity: 2},
			},
		},
		{
			ID:      "p2",
			Code:    "P-002",
			Name:    "second",
			Options: []model.Option{{ID: "optC", Code: "C", Name: "only", UnitPrice: 900, MaxQuantity: 9}},
		},
	}
}

func TestSelectResetsQuantity(t *testing.T) {
	c := New()
	c.Replace(sampleProducts())
	if err := c.Select("p1", "optA"); err != nil {
		t.Fatalf("select: %v", err)
	}
	c.SetQuantity("p1", 4)
	if err := c.Select("p1", "optB"); err != nil {
		t.Fatalf("reselect: %v", err)
	}
	_, qty, ok := c.Selection("p1")
	if !ok || qty != 1 {
		t.Fatalf("expected quantity reset to 1, got %d (ok=%v)", qty, ok)
	}
}

func TestSelectUnknown(t *testing.T) {
	c := New()
	c.Replace(sampleProducts())
	var ve *ValidationError
	if err := c.Select("nope", "optA"); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for unknown product, got %v", err)
	}
	if err := c.Select("p1", "nope"); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for unknown option, got %v", err)
	}
}

func TestSetQuantitySoftClamp(t *testing.T) {
	c := New()
	c.Replace(sampleProducts())
	_ = c.Select("p1", "optA")
	c.SetQuantity("p1", 3)
	for _, bad := range []int{0, -2, 6, 100} {
		c.SetQuantity("p1", bad)
		_, qty, _ := c.Selection("p1")
		if qty != 3 {
			t.Fatalf("quantity %d accepted, expected prior 3 kept, got %d", bad, qty)
		}
	}
	c.SetQuantity("p1", 5)
	_, qty, _ := c.Selection("p1")
	if qty != 5 {
		t.Fatalf("expected 5, got %d", qty)
	}
}

func TestSetQuantityWithoutSelection(t *testing.T) {
	c := New()
	c.Replace(sampleProducts())
	c.SetQuantity("p1", 3)
	if _, _, ok := c.Selection("p1"); ok {
		t.Fatalf("expected no selection")
	}
}

func TestConsumeBuildsSnapshotAndClears(t *testing.T) {
	c := New()
	c.Replace(sampleProducts())
	_ = c.Select("p1", "optA")
	c.SetQuantity("p1", 2)
	l, err := c.Consume("p1")
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	want := model.CartLine{
		ProductID: "p1", ProductName: "first", ProductCode: "P-001",
		OptionID: "optA", OptionName: "small", UnitPrice: 1500,
		Quantity: 2, MaxQuantity: 5,
	}
	if l != want {
		t.Fatalf("snapshot mismatch: got %+v want %+v", l, want)
	}
	if _, _, ok := c.Selection("p1"); ok {
		t.Fatalf("expected selection cleared after consume")
	}
	if _, err := c.Consume("p1"); err == nil {
		t.Fatalf("expected error on second consume")
	}
}

func TestConsumeConcurrentSingleWinner(t *testing.T) {
	c := New()
	c.Replace(sampleProducts())
	_ = c.Select("p2", "optC")
	var wg sync.WaitGroup
	wins := make(chan model.CartLine, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l, err := c.Consume("p2"); err == nil {
				wins <- l
			}
		}()
	}
	wg.Wait()
	close(wins)
	n := 0
	for range wins {
		n++
	}
	if n != 1 {
		t.Fatalf("expected exactly one successful consume, got %d", n)
	}
}

func TestReplaceDropsStaleSelections(t *testing.T) {
	c := New()
	c.Replace(sampleProducts())
	_ = c.Select("p1", "optA")
	_ = c.Select("p2", "optC")
	c.Replace(sampleProducts()[:1])
	if _, _, ok := c.Selection("p1"); !ok {
		t.Fatalf("expected surviving selection kept")
	}
	if _, _, ok := c.Selection("p2"); ok {
		t.Fatalf("expected stale selection dropped")
	}
}
