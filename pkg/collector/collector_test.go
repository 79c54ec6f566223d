package collector

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"xscraper/pkg/models"
)

func rec(author, ts string) models.Record {
	return models.Record{Author: author, Timestamp: ts, Text: "text " + author}
}

func TestOfferDeduplicates(t *testing.T) {
	c := New(10)
	r := rec("@a", "2024-01-01T00:00:00Z")

	assert.True(t, c.Offer(r))
	assert.False(t, c.Offer(r))

	edited := r
	edited.Text = "different text, same identity"
	assert.False(t, c.Offer(edited))
	assert.Equal(t, 1, c.Len())
	assert.True(t, c.Seen(edited))
}

func TestOfferIdempotentSequence(t *testing.T) {
	seq := []models.Record{
		rec("@a", "t1"), rec("@b", "t1"), rec("@a", "t2"), rec("@a", "t1"), rec("@b", "t1"),
	}

	once := New(100)
	for _, r := range seq {
		once.Offer(r)
	}
	twice := New(100)
	for _, r := range append(append([]models.Record{}, seq...), seq...) {
		twice.Offer(r)
	}

	assert.Equal(t, once.Records(), twice.Records())
	assert.Len(t, once.Records(), 3)
}

func TestOfferRespectsCapacity(t *testing.T) {
	c := New(3)
	accepted := 0
	for i := 0; i < 10; i++ {
		if c.Offer(rec(fmt.Sprintf("@u%d", i), "t")) {
			accepted++
		}
	}

	assert.Equal(t, 3, accepted)
	assert.True(t, c.Full())
	assert.Len(t, c.Records(), 3)
	assert.Equal(t, "@u0", c.Records()[0].Author, "insertion order preserved")
}

func TestAnonymousCollisionCollapses(t *testing.T) {
	c := New(5)
	assert.True(t, c.Offer(models.Record{Author: models.AnonymousAuthor, Timestamp: "t", Text: "one"}))
	assert.False(t, c.Offer(models.Record{Author: models.AnonymousAuthor, Timestamp: "t", Text: "two"}))
}

func TestSeedCountsTowardTarget(t *testing.T) {
	c := New(2)
	n := c.Seed([]models.Record{rec("@a", "1"), rec("@a", "1"), rec("@b", "2"), rec("@c", "3")})

	assert.Equal(t, 2, n)
	assert.True(t, c.Full())
	assert.False(t, c.Offer(rec("@d", "4")))
}

func TestZeroTarget(t *testing.T) {
	c := New(0)
	assert.True(t, c.Full())
	assert.False(t, c.Offer(rec("@a", "1")))
	assert.Empty(t, c.Records())
}

func TestRecordsReturnsCopy(t *testing.T) {
	c := New(2)
	c.Offer(rec("@a", "1"))
	out := c.Records()
	out[0].Author = "@mutated"

	require.Len(t, c.Records(), 1)
	assert.Equal(t, "@a", c.Records()[0].Author)
}

func TestRecordsTrimmedToTarget(t *testing.T) {
	c := New(3)
	c.Seed([]models.Record{rec("@a", "1"), rec("@b", "2"), rec("@c", "3")})

	// a lowered target never widens the output
	c.State().TargetCount = 2
	out := c.Records()
	require.Len(t, out, 2)
	assert.Equal(t, "@a", out[0].Author)
	assert.Equal(t, "@b", out[1].Author)
}

func TestStateInvariant(t *testing.T) {
	c := New(4)
	for _, r := range []models.Record{rec("@a", "1"), rec("@a", "1"), rec("@b", "1")} {
		c.Offer(r)
	}
	s := c.State()
	assert.Equal(t, len(s.Records), len(s.SeenKeys))
	assert.LessOrEqual(t, len(s.Records), s.TargetCount)
}
