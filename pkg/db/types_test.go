package db

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatches(t *testing.T) {
	body := json.RawMessage(`{"id": "1", "course": "7", "isActive": true, "count": 3}`)

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty filter", nil, true},
		{"string equal", Filter{"course": "7"}, true},
		{"string differs", Filter{"course": "8"}, false},
		{"bool", Filter{"isActive": true}, true},
		{"number", Filter{"count": 3}, true},
		{"number vs string", Filter{"count": "3"}, false},
		{"missing field", Filter{"nope": "x"}, false},
		{"all must match", Filter{"course": "7", "isActive": false}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(body, tt.filter))
		})
	}
}
