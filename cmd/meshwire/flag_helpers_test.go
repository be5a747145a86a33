package main

import (
	"reflect"
	"testing"
)

func TestReorderArgs(t *testing.T) {
	boolFlags := map[string]bool{"json": true}

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "no flags",
			args: []string{"a", "b"},
			want: []string{"a", "b"},
		},
		{
			name: "flag after positional",
			args: []string{"/ip4/1.2.3.4/tcp/4001", "--json"},
			want: []string{"--json", "/ip4/1.2.3.4/tcp/4001"},
		},
		{
			name: "value flag consumes next arg",
			args: []string{"add", "--settings", "/tmp/s.yaml", "addr"},
			want: []string{"--settings", "/tmp/s.yaml", "add", "addr"},
		},
		{
			name: "equals form keeps value inline",
			args: []string{"addr", "--settings=/tmp/s.yaml"},
			want: []string{"--settings=/tmp/s.yaml", "addr"},
		},
		{
			name: "bool flag does not consume next arg",
			args: []string{"--json", "addr"},
			want: []string{"--json", "addr"},
		},
		{
			name: "trailing value flag with nothing to consume",
			args: []string{"addr", "--settings"},
			want: []string{"--settings", "addr"},
		},
		{
			name: "empty",
			args: nil,
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reorderArgs(tt.args, boolFlags)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("reorderArgs(%v) = %v, want %v", tt.args, got, tt.want)
			}
		})
	}
}

func TestParseOnOff(t *testing.T) {
	tests := []struct {
		in    string
		value bool
		ok    bool
	}{
		{"on", true, true},
		{"true", true, true},
		{"1", true, true},
		{"off", false, true},
		{"false", false, true},
		{"0", false, true},
		{"yes", false, false},
		{"", false, false},
	}
	for _, tt := range tests {
		value, ok := parseOnOff(tt.in)
		if value != tt.value || ok != tt.ok {
			t.Errorf("parseOnOff(%q) = (%v, %v), want (%v, %v)", tt.in, value, ok, tt.value, tt.ok)
		}
	}
}
