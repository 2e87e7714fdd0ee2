package store_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/certprep/qbank/pkg/store"
)

func ids(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("id-%03d", i)
	}
	return out
}

func TestChunk(t *testing.T) {
	tests := []struct {
		n, size int
		want    []int
	}{
		{0, 50, nil},
		{1, 50, []int{1}},
		{50, 50, []int{50}},
		{51, 50, []int{50, 1}},
		{120, 50, []int{50, 50, 20}},
		{7, 0, []int{7}},
		{5, 1, []int{1, 1, 1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_by_%d", tt.n, tt.size), func(t *testing.T) {
			chunks := store.Chunk(ids(tt.n), tt.size)
			var sizes []int
			total := 0
			for _, c := range chunks {
				sizes = append(sizes, len(c))
				total += len(c)
			}
			assert.Equal(t, tt.want, sizes)
			assert.Equal(t, tt.n, total)
		})
	}
}

func TestChunk_NoAliasingOnAppend(t *testing.T) {
	all := ids(4)
	chunks := store.Chunk(all, 2)
	_ = append(chunks[0], "x")
	assert.Equal(t, "id-002", all[2])
}

func TestDedupeAndDifference(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, store.Dedupe([]string{"a", "", "b", "a", "c", "b"}))
	assert.Equal(t, []string{"a", "c"}, store.Difference([]string{"a", "b", "c"}, []string{"b", "z"}))
	assert.Nil(t, store.Difference([]string{"a"}, []string{"a"}))
}
