package page

import (
	"strings"
	"testing"
)

func Test_Extract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		blocks []ContentBlock
		want   string
	}{
		{
			name:   "no blocks",
			blocks: nil,
			want:   "",
		},
		{
			name: "single paragraph",
			blocks: []ContentBlock{
				{Tag: "p", HTML: "<p>Paris is the capital of France</p>"},
			},
			want: "Paris is the capital of France",
		},
		{
			name: "markup stripped and order preserved",
			blocks: []ContentBlock{
				{Tag: "h1", HTML: "<h1>Trip notes</h1>"},
				{Tag: "p", HTML: "<p>Fly to <b>Paris</b> in May</p>"},
			},
			want: "Trip notes\nFly to Paris in May",
		},
		{
			name: "empty html contributes nothing",
			blocks: []ContentBlock{
				{Tag: "p", HTML: ""},
				{Tag: "p", HTML: "<p>only this</p>"},
			},
			want: "only this",
		},
		{
			name: "image block contributes nothing",
			blocks: []ContentBlock{
				{Tag: "img", ImageURL: "images/abc/cat.png"},
			},
			want: "",
		},
		{
			name: "malformed markup degrades to text",
			blocks: []ContentBlock{
				{Tag: "p", HTML: "<p>unclosed <b>bold"},
			},
			want: "unclosed bold",
		},
		{
			name: "bare text without tags",
			blocks: []ContentBlock{
				{Tag: "p", HTML: "just some text"},
			},
			want: "just some text",
		},
		{
			name: "script content excluded",
			blocks: []ContentBlock{
				{Tag: "p", HTML: "<p>before</p><script>alert(1)</script><p>after</p>"},
			},
			want: "beforeafter",
		},
		{
			name: "whitespace-only markup yields empty",
			blocks: []ContentBlock{
				{Tag: "p", HTML: "<p>   </p>"},
			},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Extract(tt.blocks)
			if got != tt.want {
				t.Errorf("Extract() = %q, want %q", got, tt.want)
			}
		})
	}
}

func Test_Extract_IsPure(t *testing.T) {
	t.Parallel()

	blocks := []ContentBlock{
		{Tag: "p", HTML: "<p>same input</p>"},
		{Tag: "p", HTML: "<p>same output</p>"},
	}
	first := Extract(blocks)
	second := Extract(blocks)
	if first != second {
		t.Errorf("Extract not deterministic: %q vs %q", first, second)
	}
	if !strings.Contains(first, "same input") {
		t.Errorf("Extract() = %q, missing block text", first)
	}
}

func Test_Page_CanAccess(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		creator string
		caller  string
		want    bool
	}{
		{"public page, anonymous caller", "", "", true},
		{"public page, any caller", "", "u1", true},
		{"private page, owner", "u1", "u1", true},
		{"private page, other user", "u1", "u2", false},
		{"private page, anonymous caller", "u1", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := &Page{CreatorID: tt.creator}
			if got := p.CanAccess(tt.caller); got != tt.want {
				t.Errorf("CanAccess(%q) = %v, want %v", tt.caller, got, tt.want)
			}
		})
	}
}
