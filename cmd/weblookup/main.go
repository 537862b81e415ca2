// Command weblookup searches several web search providers at once and
// explores sites through their robots.txt and sitemaps.
//
// Usage:
//
//	weblookup search <query>
//	weblookup robots <url> [path]
//	weblookup sitemap <url>
//
// See --help for all available options.
package main

func main() {
	Execute()
}
