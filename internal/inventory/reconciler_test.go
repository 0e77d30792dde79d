package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestDelta(t *testing.T) {
	assert.Equal(t, 5, Delta(TypeImport, 5))
	assert.Equal(t, -5, Delta(TypeExport, 5))
}

// The reconciliation invariant: after any sequence of record, update, and
// delete operations, the stock counter equals the net effect of the
// surviving ledger entries. The model mirrors the service's rules (apply
// refuses to drive the counter negative, reverse refuses to underflow on
// import reversal), and the invariant must hold no matter which operations
// were accepted or refused.
func TestLedgerAlgebraPreservesReconciliation(t *testing.T) {
	type entry struct {
		t   Type
		qty int
	}

	rapid.Check(t, func(rt *rapid.T) {
		stock := 0
		ledger := map[int]entry{}
		nextID := 0

		apply := func(e entry) bool {
			if stock+Delta(e.t, e.qty) < 0 {
				return false
			}
			stock += Delta(e.t, e.qty)
			return true
		}
		reverse := func(e entry) bool {
			if stock-Delta(e.t, e.qty) < 0 {
				return false
			}
			stock -= Delta(e.t, e.qty)
			return true
		}
		drawEntry := func() entry {
			return entry{
				t:   rapid.SampledFrom([]Type{TypeImport, TypeExport}).Draw(rt, "type"),
				qty: rapid.IntRange(1, 50).Draw(rt, "qty"),
			}
		}
		anyID := func() (int, bool) {
			for id := range ledger {
				return id, true
			}
			return 0, false
		}

		ops := rapid.IntRange(1, 60).Draw(rt, "ops")
		for i := 0; i < ops; i++ {
			switch rapid.IntRange(0, 2).Draw(rt, "op") {
			case 0: // record
				e := drawEntry()
				if apply(e) {
					ledger[nextID] = e
					nextID++
				}
			case 1: // update: reverse old, apply new
				id, ok := anyID()
				if !ok {
					continue
				}
				old := ledger[id]
				if !reverse(old) {
					continue
				}
				replacement := drawEntry()
				if apply(replacement) {
					ledger[id] = replacement
				} else {
					// A refused replacement aborts the whole update,
					// restoring the old entry's effect.
					apply(old)
				}
			case 2: // delete: reverse and drop
				id, ok := anyID()
				if !ok {
					continue
				}
				if reverse(ledger[id]) {
					delete(ledger, id)
				}
			}
		}

		net := 0
		for _, e := range ledger {
			net += Delta(e.t, e.qty)
		}
		if stock != net {
			rt.Fatalf("counter %d diverged from ledger net %d", stock, net)
		}
		if stock < 0 {
			rt.Fatalf("counter went negative: %d", stock)
		}
	})
}

func TestRequestValidate(t *testing.T) {
	valid := Request{Type: TypeImport, Quantity: 3, Price: price(10000)}
	assert.NoError(t, valid.Validate())

	cases := []struct {
		name string
		req  Request
		want error
	}{
		{"bad type", Request{Type: "REFUND", Quantity: 3, Price: price(1)}, ErrInvalidTransactionType},
		{"zero quantity", Request{Type: TypeExport, Quantity: 0, Price: price(1)}, ErrInvalidQuantity},
		{"negative quantity", Request{Type: TypeExport, Quantity: -2, Price: price(1)}, ErrInvalidQuantity},
		{"zero price", Request{Type: TypeImport, Quantity: 1, Price: price(0)}, ErrInvalidPrice},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.req.Validate(), tc.want)
		})
	}
}
