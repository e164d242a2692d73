package markdown

import (
	"strings"
	"testing"
)

func TestToHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{
			name:     "heading gets an id",
			input:    "# Hello World",
			contains: []string{`<h1 id="hello-world">Hello World</h1>`},
		},
		{
			name:     "emphasis",
			input:    "some **bold** and *italic*",
			contains: []string{"<strong>bold</strong>", "<em>italic</em>"},
		},
		{
			name:     "gfm table",
			input:    "| a | b |\n|---|---|\n| 1 | 2 |",
			contains: []string{"<table>", "<td>1</td>"},
		},
		{
			name:     "fenced code is highlighted",
			input:    "```go\nfunc main() {}\n```",
			contains: []string{"<pre", "func"},
		},
		{
			name:     "script is stripped",
			input:    "hello <script>alert(1)</script>",
			contains: []string{"hello"},
			excludes: []string{"<script>", "alert(1)"},
		},
		{
			name:     "event handlers are stripped",
			input:    `<a href="/x" onclick="steal()">x</a>`,
			excludes: []string{"onclick"},
		},
		{
			name:     "javascript links are stripped",
			input:    "[x](javascript:alert(1))",
			excludes: []string{"javascript:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToHTML(tt.input)
			if err != nil {
				t.Fatalf("ToHTML: %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("ToHTML(%q) = %q, want it to contain %q", tt.input, got, want)
				}
			}
			for _, bad := range tt.excludes {
				if strings.Contains(got, bad) {
					t.Errorf("ToHTML(%q) = %q, must not contain %q", tt.input, got, bad)
				}
			}
		})
	}
}

func TestToHTMLEmpty(t *testing.T) {
	for _, in := range []string{"", "  ", "\n\t"} {
		got, err := ToHTML(in)
		if err != nil {
			t.Fatalf("ToHTML(%q): %v", in, err)
		}
		if got != "" {
			t.Errorf("ToHTML(%q) = %q, want empty", in, got)
		}
	}
}

func TestStripTags(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "plain text", want: "plain text"},
		{in: "<b>bold</b> move", want: "bold move"},
		{in: "Tom & Jerry", want: "Tom & Jerry"},
		{in: `<img src=x onerror="alert(1)">hi`, want: "hi"},
	}

	for _, tt := range tests {
		if got := StripTags(tt.in); got != tt.want {
			t.Errorf("StripTags(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToHTMLNeverEmptyForContent(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "script only", input: "<script>alert(1)</script>", want: "<p>&lt;script&gt;alert(1)&lt;/script&gt;</p>"},
		{name: "html comment", input: "<!-- draft note -->", want: "<p>&lt;!-- draft note --&gt;</p>"},
		{name: "iframe", input: `<iframe src="https://x"></iframe>`, want: "<p>&lt;iframe src=&#34;https://x&#34;&gt;&lt;/iframe&gt;</p>"},
		{name: "surrounding whitespace", input: "\n <!-- x -->\n", want: "<p>&lt;!-- x --&gt;</p>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToHTML(tt.input)
			if err != nil {
				t.Fatalf("ToHTML: %v", err)
			}
			if got != tt.want {
				t.Errorf("ToHTML(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
