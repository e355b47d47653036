package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePropertyType(t *testing.T) {
	tests := []struct {
		tag  string
		want PropertyType
		ok   bool
	}{
		{"str", PropertyTypeString, true},
		{"string", PropertyTypeString, true},
		{"STR", PropertyTypeString, true},
		{"String", PropertyTypeString, true},
		{"bool", PropertyTypeBoolean, true},
		{"boolean", PropertyTypeBoolean, true},
		{"BOOLEAN", PropertyTypeBoolean, true},
		{"float", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			got, ok := NormalizePropertyType(tt.tag)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
