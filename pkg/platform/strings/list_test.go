package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitCSV(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []string
	}{
		{
			name:  "plain list",
			value: "a,b,c",
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "trims whitespace",
			value: " kafka-1:9092 ,\tkafka-2:9092 ",
			want:  []string{"kafka-1:9092", "kafka-2:9092"},
		},
		{
			name:  "drops empties and duplicates, keeps first occurrence",
			value: "a,,b, ,a,b",
			want:  []string{"a", "b"},
		},
		{
			name:  "empty input",
			value: "",
			want:  []string{},
		},
		{
			name:  "only separators",
			value: ", ,,",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitCSV(tt.value))
		})
	}
}
