package migrate

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestPrepareURLForDB(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"postgresql://db/auriga", "postgresql://db/auriga?sslmode=disable"},
		{"postgresql://db/auriga?pool_max_conns=4", "postgresql://db/auriga?pool_max_conns=4&sslmode=disable"},
		{"postgresql://db/auriga?sslmode=require", "postgresql://db/auriga?sslmode=require"},
	}
	for _, tt := range tests {
		assert.Equal(t, prepareURLForDB(tt.url), tt.want)
	}
}
