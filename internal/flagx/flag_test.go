package flagx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "keeps allowed flag with separate value",
			args:    []string{"-a", ":8080", "-x", "junk"},
			allowed: []string{"-a"},
			want:    []string{"-a", ":8080"},
		},
		{
			name:    "keeps combined form",
			args:    []string{"--addr=:8080", "-x"},
			allowed: []string{"--addr"},
			want:    []string{"--addr=:8080"},
		},
		{
			name:    "drops unknown flags",
			args:    []string{"-z", "1", "-y=2"},
			allowed: []string{"-a"},
			want:    []string{},
		},
		{
			name:    "value that looks like a flag is not consumed",
			args:    []string{"-a", "-b"},
			allowed: []string{"-a", "-b"},
			want:    []string{"-a", "-b"},
		},
		{
			name:    "empty input",
			args:    nil,
			allowed: []string{"-a"},
			want:    []string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FilterArgs(tc.args, tc.allowed)
			require.Equal(t, tc.want, got)
		})
	}
}
