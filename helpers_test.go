package edgedupe

import "testing"

func TestExtractOGImageURL(t *testing.T) {
	t.Parallel()

	const page = "https://blog.example.com/posts/42"

	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "property before content",
			html: `<meta property="og:image" content="https://i.example.com/a.jpg"/>`,
			want: "https://i.example.com/a.jpg",
		},
		{
			name: "content before property",
			html: `<meta content='https://i.example.com/b.png' property='og:image'>`,
			want: "https://i.example.com/b.png",
		},
		{
			name: "entities unescaped",
			html: `<meta property="og:image" content="https://i.example.com/c.jpg?w=1&amp;s=2"/>`,
			want: "https://i.example.com/c.jpg?w=1&s=2",
		},
		{
			name: "case insensitive",
			html: `<META PROPERTY="og:image" CONTENT="https://i.example.com/d.jpg">`,
			want: "https://i.example.com/d.jpg",
		},
		{
			name: "secure url preferred",
			html: `<meta property="og:image" content="http://i.example.com/e.jpg">` +
				`<meta property="og:image:secure_url" content="https://i.example.com/e.jpg">`,
			want: "https://i.example.com/e.jpg",
		},
		{
			name: "first og:image wins",
			html: `<meta property="og:image" content="https://i.example.com/1.jpg">` +
				`<meta property="og:image" content="https://i.example.com/2.jpg">`,
			want: "https://i.example.com/1.jpg",
		},
		{
			name: "twitter fallback",
			html: `<meta name="twitter:image" content="https://i.example.com/t.jpg">`,
			want: "https://i.example.com/t.jpg",
		},
		{
			name: "root-relative resolved",
			html: `<meta property="og:image" content="/media/f.png">`,
			want: "https://blog.example.com/media/f.png",
		},
		{
			name: "path-relative resolved",
			html: `<meta property="og:image" content="img/g.png">`,
			want: "https://blog.example.com/posts/img/g.png",
		},
		{
			name: "protocol-relative resolved",
			html: `<meta property="og:image" content="//cdn.example.com/h.png">`,
			want: "https://cdn.example.com/h.png",
		},
		{
			name: "data uri rejected",
			html: `<meta property="og:image" content="data:image/png;base64,AAAA">`,
			want: "",
		},
		{name: "other meta only", html: `<meta property="og:title" content="hello">`, want: ""},
		{name: "missing", html: `<title>nothing here</title>`, want: ""},
		{name: "empty", html: "", want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ExtractOGImageURL(tc.html, page); got != tc.want {
				t.Errorf("ExtractOGImageURL() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestExtractOGImageURL_RelativeWithoutBase(t *testing.T) {
	t.Parallel()
	if got := ExtractOGImageURL(`<meta property="og:image" content="/a.png">`, ""); got != "" {
		t.Errorf("ExtractOGImageURL() = %q, want empty", got)
	}
}

func TestIsAnimatedURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		lower string
		want  bool
	}{
		{"https://i.redd.it/abc123.gif", true},
		{"https://i.imgur.com/abc123.gifv", true},
		{"https://redgifs.com/watch/abc", true},
		{"https://v.redd.it/abc123", true},
		{"https://cdn.example.com/clip.mp4", true},
		{"https://i.redd.it/abc123.jpg", false},
		{"https://preview.redd.it/abc.png?width=640&format=png", false},
	}

	for _, tc := range tests {
		t.Run(tc.lower, func(t *testing.T) {
			t.Parallel()
			if got := IsAnimatedURL(tc.lower); got != tc.want {
				t.Errorf("IsAnimatedURL(%q) = %v, want %v", tc.lower, got, tc.want)
			}
		})
	}
}
