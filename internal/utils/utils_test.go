package utils

import (
	"reflect"
	"testing"
)

func TestUnique(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"no dupes", []string{"a", "b", "c"}, []string{"a", "b", "c"}},
		{"dupes", []string{"a", "a", "b"}, []string{"a", "b"}},
		{"empty strings dropped", []string{"a", "", "b"}, []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Unique(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Unique() = %v, want %v", got, tt.want)
			}
		})
	}
}
