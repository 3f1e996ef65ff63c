package sanitize

import "testing"

func TestTextSanitizer_Text(t *testing.T) {
	s := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text passes through", "I love dogs", "I love dogs"},
		{"empty string", "", ""},
		{"strips script tags", `hello<script>alert("xss")</script>`, `hello`},
		{"strips all markup", "<b>bold</b> and <i>italic</i>", "bold and italic"},
		{"keeps ampersand as plain text", "cats & dogs", "cats & dogs"},
		{"keeps angle-less comparison", "walks 2 hours, rain or shine", "walks 2 hours, rain or shine"},
		{"strips event handler markup", `<img src=x onerror=alert(1)>friendly`, "friendly"},
		{"trims surrounding whitespace", "  hi  ", "hi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Text(tt.input); got != tt.want {
				t.Errorf("Text(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTextSanitizer_Deterministic(t *testing.T) {
	s := NewTextSanitizer()
	input := `<p>loves long walks</p>`

	first := s.Text(input)
	second := s.Text(input)
	if first != second {
		t.Errorf("Text() not deterministic: %q vs %q", first, second)
	}
}
