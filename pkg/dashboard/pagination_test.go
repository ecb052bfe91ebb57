package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func pageNumbers(p Pagination) []int {
	ret := []int{}
	for _, it := range p.Items {
		if it.Ellipsis {
			ret = append(ret, 0)
		} else {
			ret = append(ret, it.Page)
		}
	}
	return ret
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		current   int
		wantPages int
		wantItems []int // 0 marks an ellipsis
		wantPrev  bool  // prev disabled
		wantNext  bool  // next disabled
		wantText  string
	}{
		{
			name: "first page", total: 47, current: 1, wantPages: 5,
			wantItems: []int{1, 2, 0, 5}, wantPrev: true,
			wantText: "  [1] 2 ... 5 >",
		},
		{
			name: "middle page", total: 47, current: 3, wantPages: 5,
			wantItems: []int{1, 2, 3, 4, 5},
			wantText:  "< 1 2 [3] 4 5 >",
		},
		{
			name: "fourth page", total: 47, current: 4, wantPages: 5,
			wantItems: []int{1, 0, 3, 4, 5},
			wantText:  "< 1 ... 3 [4] 5 >",
		},
		{
			name: "last page", total: 47, current: 5, wantPages: 5,
			wantItems: []int{1, 0, 4, 5}, wantNext: true,
			wantText: "< 1 ... 4 [5]  ",
		},
		{
			name: "gaps on both sides", total: 200, current: 10, wantPages: 20,
			wantItems: []int{1, 0, 9, 10, 11, 0, 20},
			wantText:  "< 1 ... 9 [10] 11 ... 20 >",
		},
		{
			name: "current clamped", total: 47, current: 9, wantPages: 5,
			wantItems: []int{1, 0, 4, 5}, wantNext: true,
			wantText: "< 1 ... 4 [5]  ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Paginate(tt.total, 10, tt.current)
			assert.Equal(t, tt.wantPages, p.TotalPages)
			assert.Equal(t, tt.wantItems, pageNumbers(p))
			assert.Equal(t, tt.wantPrev, p.PrevDisabled)
			assert.Equal(t, tt.wantNext, p.NextDisabled)
			assert.False(t, p.Hidden())
			assert.Equal(t, tt.wantText, p.String())
		})
	}
}

func TestPaginate_Hidden(t *testing.T) {
	for _, total := range []int{0, 1, 10} {
		p := Paginate(total, 10, 1)
		assert.True(t, p.Hidden(), "total %d", total)
		assert.Empty(t, p.String())
	}
}

func TestPagination_Valid(t *testing.T) {
	p := Paginate(47, 10, 2)
	assert.True(t, p.Valid(1))
	assert.True(t, p.Valid(5))
	assert.False(t, p.Valid(0))
	assert.False(t, p.Valid(6))
}
