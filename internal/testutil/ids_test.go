package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequentialIDs(t *testing.T) {
	g := NewSequentialIDs("")
	assert.Equal(t, "attempt-1", g.Generate())
	assert.Equal(t, "attempt-2", g.Generate())
	g.Reset()
	assert.Equal(t, "attempt-1", g.Generate())
}

func TestSequentialIDs_Concurrent(t *testing.T) {
	g := NewSequentialIDs("x")
	var wg sync.WaitGroup
	seen := sync.Map{}
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, dup := seen.LoadOrStore(g.Generate(), true)
			assert.False(t, dup)
		}()
	}
	wg.Wait()
}

func TestParties_DistinctAndDeterministic(t *testing.T) {
	a := NewParties()
	b := NewParties()
	assert.True(t, a.Seller.Equal(b.Seller))
	traders := a.Traders()
	for i := range traders {
		for j := range traders {
			if i != j {
				assert.False(t, traders[i].Equal(traders[j]))
			}
		}
	}
	loc := a.LetterOfCredit(a.PurchaseOrder("PO-1"), "LOC-1", 500)
	assert.Equal(t, "PO-1", loc.PurchaseOrderID)
	assert.True(t, a.BillOfLading(loc, "B-1").CurrentOwner.Equal(a.Seller))
}
