package robots

import (
	"testing"
	"time"
)

func TestParse_BasicRules(t *testing.T) {
	t.Parallel()
	txt := `User-agent: *
Disallow: /admin/
Allow: /admin/public/
Crawl-delay: 10
Sitemap: https://example.com/sitemap.xml
`
	p := Parse(txt)
	if len(p.Rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(p.Rules))
	}
	if p.Rules[0] != (Rule{UserAgent: "*", Kind: Disallow, Path: "/admin/"}) {
		t.Fatalf("unexpected first rule: %+v", p.Rules[0])
	}
	if p.Rules[1] != (Rule{UserAgent: "*", Kind: Allow, Path: "/admin/public/"}) {
		t.Fatalf("unexpected second rule: %+v", p.Rules[1])
	}
	if p.CrawlDelay == nil || *p.CrawlDelay != 10*time.Second {
		t.Fatalf("expected 10s crawl delay, got %v", p.CrawlDelay)
	}
	if len(p.Sitemaps) != 1 || p.Sitemaps[0] != "https://example.com/sitemap.xml" {
		t.Fatalf("unexpected sitemaps: %v", p.Sitemaps)
	}
}

func TestParse_UserAgentSwitchesContextWithoutResetting(t *testing.T) {
	t.Parallel()
	txt := "User-agent: Googlebot\nAllow: /\n\nUser-agent: BadBot\nDisallow: /\n"
	p := Parse(txt)
	if len(p.Rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(p.Rules))
	}
	if p.Rules[0].UserAgent != "Googlebot" || p.Rules[0].Kind != Allow {
		t.Fatalf("unexpected first rule: %+v", p.Rules[0])
	}
	if p.Rules[1].UserAgent != "BadBot" || p.Rules[1].Kind != Disallow {
		t.Fatalf("unexpected second rule: %+v", p.Rules[1])
	}
}

func TestParse_RulesBeforeAnyUserAgentApplyToWildcard(t *testing.T) {
	t.Parallel()
	p := Parse("Disallow: /tmp\n")
	if len(p.Rules) != 1 || p.Rules[0].UserAgent != "*" {
		t.Fatalf("expected rule for '*', got %+v", p.Rules)
	}
}

func TestParse_EmptyDisallowIsIgnored_EmptyAllowIsKept(t *testing.T) {
	t.Parallel()
	if p := Parse("User-agent: *\nDisallow:\n"); len(p.Rules) != 0 {
		t.Fatalf("expected empty disallow to be dropped, got %+v", p.Rules)
	}
	p := Parse("User-agent: *\nAllow:\n")
	if len(p.Rules) != 1 || p.Rules[0].Kind != Allow || p.Rules[0].Path != "" {
		t.Fatalf("expected match-all allow rule, got %+v", p.Rules)
	}
}

func TestParse_CommentsAndCaseInsensitiveDirectives(t *testing.T) {
	t.Parallel()
	txt := `# leading comment
USER-AGENT: * # all bots
disallow: /private/ # secret area
ALLOW: /a\#b
Unknown-Directive: whatever
no colon here
`
	p := Parse(txt)
	if len(p.Rules) != 2 {
		t.Fatalf("expected 2 rules, got %+v", p.Rules)
	}
	if p.Rules[0].Path != "/private/" || p.Rules[0].UserAgent != "*" {
		t.Fatalf("inline comment not stripped: %+v", p.Rules[0])
	}
	if p.Rules[1].Path != `/a\#b` {
		t.Fatalf("escaped '#' should be kept, got %q", p.Rules[1].Path)
	}
}

func TestParse_CrawlDelayValues(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want *time.Duration
	}{
		{"2.5", durPtr(2500 * time.Millisecond)},
		{"0", durPtr(0)},
		{"abc", nil},
		{"-1", nil},
		{"1,5", nil},
		{"NaN", nil},
	}
	for _, c := range cases {
		p := Parse("User-agent: *\nCrawl-delay: " + c.in + "\n")
		switch {
		case c.want == nil && p.CrawlDelay != nil:
			t.Fatalf("%q: expected no crawl delay, got %v", c.in, *p.CrawlDelay)
		case c.want != nil && (p.CrawlDelay == nil || *p.CrawlDelay != *c.want):
			t.Fatalf("%q: expected %v, got %v", c.in, *c.want, p.CrawlDelay)
		}
	}
}

func TestParse_MultipleSitemapsAndCRLF(t *testing.T) {
	t.Parallel()
	txt := "Sitemap: https://a.example/1.xml\r\nSitemap: https://a.example/2.xml\r\nsitemap: https://a.example/3.xml.gz\r\n"
	p := Parse(txt)
	if len(p.Sitemaps) != 3 || p.Sitemaps[2] != "https://a.example/3.xml.gz" {
		t.Fatalf("unexpected sitemaps: %v", p.Sitemaps)
	}
}

func TestIsAllowed_NoRulesAllowsEverything(t *testing.T) {
	t.Parallel()
	p := AllowAll()
	for _, path := range []string{"/", "/any/path", "", "/admin?x=1"} {
		if !p.IsAllowed(path, "*") {
			t.Fatalf("expected %q to be allowed without rules", path)
		}
	}
	if DisallowAll().IsAllowed("/anything", "") {
		t.Fatalf("expected DisallowAll to deny")
	}
}

func TestIsAllowed_LongestMatchWins(t *testing.T) {
	t.Parallel()
	p := Policy{Rules: []Rule{
		{UserAgent: "*", Kind: Disallow, Path: "/admin/"},
		{UserAgent: "*", Kind: Allow, Path: "/admin/public/"},
	}}
	if p.IsAllowed("/admin/secret", "*") {
		t.Fatalf("expected /admin/secret to be disallowed")
	}
	if !p.IsAllowed("/admin/public/page", "*") {
		t.Fatalf("expected /admin/public/page to be allowed")
	}
	if !p.IsAllowed("/public/page", "*") {
		t.Fatalf("expected /public/page to be allowed (no matching rule)")
	}
}

func TestIsAllowed_EqualLengthAllowWins(t *testing.T) {
	t.Parallel()
	p := Policy{Rules: []Rule{
		{UserAgent: "*", Kind: Disallow, Path: "/page"},
		{UserAgent: "*", Kind: Allow, Path: "/page"},
	}}
	if !p.IsAllowed("/page", "*") {
		t.Fatalf("expected allow to win equal-length tie")
	}
	// Order must not matter.
	p.Rules[0], p.Rules[1] = p.Rules[1], p.Rules[0]
	if !p.IsAllowed("/page", "*") {
		t.Fatalf("expected allow to win equal-length tie regardless of order")
	}
}

func TestIsAllowed_UserAgentSelection(t *testing.T) {
	t.Parallel()
	p := Parse(`User-agent: *
Disallow: /

User-agent: MyBot
Allow: /
Disallow: /secret
`)
	if p.IsAllowed("/anything", "OtherBot") {
		t.Fatalf("expected wildcard disallow for OtherBot")
	}
	if !p.IsAllowed("/anything", "MyBot") {
		t.Fatalf("expected specific allow for MyBot")
	}
	for _, ua := range []string{"mybot", "MYBOT"} {
		if p.IsAllowed("/secret", ua) {
			t.Fatalf("expected case-insensitive agent match for %q", ua)
		}
	}
	if p.IsAllowed("/anything", "") {
		t.Fatalf("expected empty agent to use '*' rules")
	}
}

func TestIsAllowed_FallbackOnlyUsesExactWildcardAgent(t *testing.T) {
	t.Parallel()
	p := Policy{Rules: []Rule{
		{UserAgent: "SpecificBot", Kind: Allow, Path: "/private/"},
		{UserAgent: "*", Kind: Disallow, Path: "/private/"},
	}}
	if p.IsAllowed("/private/secret", "UnknownBot") {
		t.Fatalf("expected UnknownBot to fall back to '*'")
	}
	if !p.IsAllowed("/private/secret", "SpecificBot") {
		t.Fatalf("expected SpecificBot to use its own rules")
	}
}

func TestIsAllowed_EmptyPatternMatchesAll(t *testing.T) {
	t.Parallel()
	p := Policy{Rules: []Rule{{UserAgent: "*", Kind: Disallow, Path: ""}}}
	if p.IsAllowed("/any/path", "*") {
		t.Fatalf("expected empty disallow pattern to match every path")
	}
}

func TestIsAllowed_PathIsCaseSensitive(t *testing.T) {
	t.Parallel()
	p := Policy{Rules: []Rule{{UserAgent: "*", Kind: Disallow, Path: "/Admin"}}}
	if p.IsAllowed("/Admin/page", "*") {
		t.Fatalf("expected /Admin/page to be disallowed")
	}
	if !p.IsAllowed("/admin/page", "*") {
		t.Fatalf("expected /admin/page to be allowed")
	}
}

func TestMatchPattern(t *testing.T) {
	t.Parallel()
	cases := []struct {
		pattern, path string
		want          bool
	}{
		{"", "/anything", true},
		{"/", "/anything", true},
		{"/exact$", "/exact", true},
		{"/exact$", "/exact/more", false},
		{"/*.gif$", "/images/photo.gif", true},
		{"/*.gif$", "/images/photo.gif/page", false},
		{"/*.gif$", "/images/photo.png", false},
		{"/*.pdf", "/docs/report.pdf", true},
		{"/*.pdf", "/docs/report.html", false},
		{"/private/*.html", "/private/page.html", true},
		{"/private/*.html", "/public/private/page.html", false},
		{"/dir1/*/dir2/*.html", "/dir1/foo/dir2/page.html", true},
		{"/dir1/*/dir2/*.html", "/dir1/bar/baz/dir2/index.html", true},
		{"/dir1/*/dir2/*.html", "/dir1/foo/dir2/page.json", false},
		{"/page*end$", "/page-something-end", true},
		{"/page*end$", "/page-something-end/more", false},
		{"/*?session=", "/index.html?session=1", true},
		{"*", "/x", true},
		{"/a**b", "/a/b", true},
	}
	for _, c := range cases {
		if got := matchPattern(c.pattern, c.path); got != c.want {
			t.Fatalf("matchPattern(%q, %q) = %v, want %v", c.pattern, c.path, got, c.want)
		}
	}
}

func TestIsAllowed_WildcardWithDollar(t *testing.T) {
	t.Parallel()
	p := Parse("User-agent: *\nDisallow: /*.gif$\n")
	if p.IsAllowed("/images/photo.gif", "*") {
		t.Fatalf("expected .gif to be disallowed")
	}
	if !p.IsAllowed("/images/photo.gif/page", "*") || !p.IsAllowed("/images/photo.png", "*") {
		t.Fatalf("expected non-terminal .gif and .png to be allowed")
	}
}

func durPtr(d time.Duration) *time.Duration { return &d }
