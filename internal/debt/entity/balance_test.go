package entity

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

const (
	realUser    = "real"
	virtualUser = "virtual"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func assertBalance(t *testing.T, b Balance, summary int64, receiver string) {
	t.Helper()
	assert.True(t, b.Summary.Equal(d(summary)), "summary %s, want %d", b.Summary, summary)
	assert.Equal(t, receiver, b.Receiver)
}

func TestApplyOppositeFlowsCancel(t *testing.T) {
	b := Balance{Summary: decimal.Zero}

	b = b.Apply(virtualUser, d(300))
	assertBalance(t, b, 300, virtualUser)

	b = b.Apply(realUser, d(300))
	assertBalance(t, b, 0, "")
}

func TestApplySameDirectionAccumulates(t *testing.T) {
	b := Balance{Summary: d(300), Receiver: realUser}
	assertBalance(t, b.Apply(realUser, d(100)), 400, realUser)
}

func TestApplyCrossingZeroFlipsReceiver(t *testing.T) {
	b := Balance{Summary: d(300), Receiver: virtualUser}
	assertBalance(t, b.Apply(realUser, d(500)), 200, realUser)
}

func TestApplyPartialRepayment(t *testing.T) {
	b := Balance{Summary: d(300), Receiver: virtualUser}
	assertBalance(t, b.Apply(realUser, d(100)), 200, virtualUser)
}

func TestApplyDecimalAmounts(t *testing.T) {
	b := Balance{Summary: decimal.Zero}
	b = b.Apply(realUser, decimal.RequireFromString("10.10"))
	b = b.Apply(virtualUser, decimal.RequireFromString("10.20"))
	assert.True(t, b.Summary.Equal(decimal.RequireFromString("0.10")))
	assert.Equal(t, virtualUser, b.Receiver)
}

func TestRevertRestoresPreviousBalance(t *testing.T) {
	cases := []Balance{
		{Summary: decimal.Zero},
		{Summary: d(300), Receiver: realUser},
		{Summary: d(300), Receiver: virtualUser},
		{Summary: d(100), Receiver: virtualUser},
	}
	for _, start := range cases {
		for _, target := range []string{realUser, virtualUser} {
			other := virtualUser
			if target == virtualUser {
				other = realUser
			}
			got := start.Apply(target, d(100)).Revert(other, d(100))
			assert.True(t, got.Summary.Equal(start.Summary), "start %+v target %s", start, target)
			assert.Equal(t, start.Receiver, got.Receiver, "start %+v target %s", start, target)
		}
	}
}

func TestRandomSequencesKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	members := [2]string{realUser, virtualUser}
	for run := 0; run < 200; run++ {
		b := Balance{Summary: decimal.Zero}
		signed := decimal.Zero // positive means realUser is owed
		for step := 0; step < 30; step++ {
			target := members[rng.Intn(2)]
			amount := decimal.New(int64(rng.Intn(100000)+1), -2)
			prev := b
			b = b.Apply(target, amount)
			if target == realUser {
				signed = signed.Add(amount)
			} else {
				signed = signed.Sub(amount)
			}

			assert.False(t, b.Summary.IsNegative())
			assert.Equal(t, b.Summary.IsZero(), b.Receiver == "")
			assert.True(t, b.Summary.Equal(signed.Abs()))
			if !signed.IsZero() {
				want := realUser
				if signed.IsNegative() {
					want = virtualUser
				}
				assert.Equal(t, want, b.Receiver)
			}

			other := virtualUser
			if target == virtualUser {
				other = realUser
			}
			undone := b.Revert(other, amount)
			assert.True(t, undone.Summary.Equal(prev.Summary))
			assert.Equal(t, prev.Receiver, undone.Receiver)
		}
	}
}
