package extract

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/nao1215/jsrecon/internal/model"
)

func TestJSExtractor_Extract(t *testing.T) {
	t.Parallel()

	html := `<html><head>
<script src="/app.js"></script>
<script src=" https://cdn.example.net/lib.js "></script>
<script src="javascript:void(0)"></script>
<script>var config = { debug: true };</script>
<script>   </script>
</head><body>
<button onclick="track('x')" onMouseOver="hover()">Go</button>
<div onload="">empty handler</div>
<a href="/about">About</a>
</body></html>`

	scripts, err := NewJSExtractor().Extract(html, "https://example.com/shop/index.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantURLs := []string{"https://example.com/app.js", "https://cdn.example.net/lib.js"}
	if strings.Join(scripts.ScriptURLs, ",") != strings.Join(wantURLs, ",") {
		t.Errorf("expected script URLs %v, got %v", wantURLs, scripts.ScriptURLs)
	}

	if len(scripts.Skipped) != 1 {
		t.Errorf("expected 1 skipped reference, got %d", len(scripts.Skipped))
	} else if !errors.Is(scripts.Skipped[0], ErrParse) {
		t.Errorf("expected skipped item to be a ParseError, got %v", scripts.Skipped[0])
	}

	wantSources := []string{model.SourceInlineScript, "attribute:onclick", "attribute:onmouseover"}
	if len(scripts.Inline) != len(wantSources) {
		t.Fatalf("expected %d inline blocks, got %d: %+v", len(wantSources), len(scripts.Inline), scripts.Inline)
	}
	for i, want := range wantSources {
		if scripts.Inline[i].Source != want {
			t.Errorf("block %d: expected source %q, got %q", i, want, scripts.Inline[i].Source)
		}
	}
	if scripts.Inline[0].Content != "var config = { debug: true };" {
		t.Errorf("unexpected inline content %q", scripts.Inline[0].Content)
	}
	if scripts.Inline[1].Content != "track('x')" {
		t.Errorf("unexpected handler content %q", scripts.Inline[1].Content)
	}
}

// A page with one external script, one inline script and one same-origin
// link yields exactly those three things.
func TestExtract_ScriptInlineAndLink(t *testing.T) {
	t.Parallel()

	html := `<html><body>
<script src="/app.js"></script>
<script>console.log("hi")</script>
<a href="/about">About</a>
</body></html>`
	base := "https://example.com/index.html"

	scripts, err := NewJSExtractor().Extract(html, base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scripts.ScriptURLs) != 1 || scripts.ScriptURLs[0] != "https://example.com/app.js" {
		t.Errorf("expected one resolved script URL, got %v", scripts.ScriptURLs)
	}
	if len(scripts.Inline) != 1 || scripts.Inline[0].Source != model.SourceInlineScript {
		t.Errorf("expected one inline block, got %+v", scripts.Inline)
	}

	links, err := NewLinkExtractor().Extract(html, base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(links) != 1 || links[0] != "https://example.com/about" {
		t.Errorf("expected [https://example.com/about], got %v", links)
	}
}

func TestJSExtractor_InvalidBase(t *testing.T) {
	t.Parallel()

	for _, base := range []string{"://bad", "/relative/only", "ftp://example.com/"} {
		_, err := NewJSExtractor().Extract("<script></script>", base)
		if !errors.Is(err, ErrParse) {
			t.Errorf("base %q: expected ErrParse, got %v", base, err)
		}
	}
}

func TestLinkExtractor_Extract(t *testing.T) {
	t.Parallel()

	html := `<html><body>
<a href="/about">About</a>
<a href="/about#team">About again</a>
<a href="#top">Top</a>
<a href="">Empty</a>
<a href="   ">Blank</a>
<a href="mailto:me@example.com">Mail</a>
<a href="TEL:+123">Phone</a>
<a href="JavaScript:alert(1)">JS</a>
<a href="/cdn-cgi/l/email-protection#abc">Protected</a>
<a href="https://other.example.org/page">Other origin</a>
<a href="http://example.com/insecure">Other scheme</a>
<a href="https://EXAMPLE.com:443/contact?x=1">Contact</a>
<a href="docs/guide">Relative</a>
<a href="https://example.com:8443/admin">Other port</a>
<a href="http://[::1">Broken</a>
</body></html>`

	links, err := NewLinkExtractor().ExtractAll(html, "https://example.com/help/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"https://example.com/about",
		"https://example.com/contact?x=1",
		"https://example.com/help/docs/guide",
	}
	if strings.Join(links.URLs, "\n") != strings.Join(want, "\n") {
		t.Errorf("expected links\n%v\ngot\n%v", want, links.URLs)
	}
	if len(links.Skipped) != 1 {
		t.Errorf("expected 1 skipped href, got %d", len(links.Skipped))
	}
}

func TestOrigin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		same bool
	}{
		{"https://example.com", "https://EXAMPLE.com:443/x", true},
		{"http://example.com/", "http://example.com:80/a?b", true},
		{"http://example.com", "https://example.com", false},
		{"https://example.com", "https://www.example.com", false},
		{"https://example.com:8443", "https://example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.a+" "+tt.b, func(t *testing.T) {
			t.Parallel()
			if got := SameOrigin(tt.a, tt.b); got != tt.same {
				t.Errorf("SameOrigin(%q, %q) = %v, expected %v", tt.a, tt.b, got, tt.same)
			}
		})
	}

	u, _ := url.Parse("https://Example.com/path")
	if got := Origin(u); got != "https://example.com:443" {
		t.Errorf("expected https://example.com:443, got %q", got)
	}
}

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"https://Example.COM", "https://example.com/"},
		{"https://example.com/a#frag", "https://example.com/a"},
		{"HTTP://example.com:80/a", "http://example.com/a"},
		{"https://example.com:443/", "https://example.com/"},
		{"https://example.com:8443/a", "https://example.com:8443/a"},
		{"https://example.com/a?q=1", "https://example.com/a?q=1"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := NormalizeURL(tt.in); got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, expected %q", tt.in, got, tt.want)
			}
		})
	}
}
