package processing

import (
	"reflect"
	"testing"
)

func TestExtractTextSplitsOnBlockElements(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "paragraphs",
			input: "<html><body><p>first</p><p>second</p></body></html>",
			want:  []string{"first", "second"},
		},
		{
			name:  "nested inline markup collapses",
			input: "<div>hello <b>bold</b> world</div>",
			want:  []string{"hello bold world"},
		},
		{
			name:  "no block elements",
			input: "just text",
			want:  []string{"just text"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractText(tt.input)
			if err != nil {
				t.Fatalf("extractText() error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("extractText() = %v, want %v", got, tt.want)
			}
		})
	}
}
