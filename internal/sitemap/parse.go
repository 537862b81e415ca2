package sitemap

import (
	"encoding/xml"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/net/html/charset"
)

// document is a parsed sitemap: either an index listing child sitemaps or a
// urlset listing entries.
type document struct {
	index    bool
	children []string
	entries  []Entry
}

// parseDocument reads a sitemap or sitemap index. The root element decides the
// kind; anything other than <sitemapindex> is read as a flat list of <url>
// elements. Child elements are matched in the root element's namespace, so
// documents with and without the sitemaps.org namespace both work.
func parseDocument(r io.Reader) (*document, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	root, err := rootElement(dec)
	if err != nil {
		return nil, err
	}
	ns := root.Name.Space
	doc := &document{index: root.Name.Local == "sitemapindex"}
	item := "url"
	if doc.index {
		item = "sitemap"
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			// EOF before </root> is malformed as well.
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != ns || t.Name.Local != item {
				if err := dec.Skip(); err != nil {
					return nil, err
				}
				continue
			}
			fields, err := readFields(dec, ns)
			if err != nil {
				return nil, err
			}
			loc, ok := fields["loc"]
			if !ok || loc == "" {
				continue
			}
			if doc.index {
				doc.children = append(doc.children, loc)
				continue
			}
			doc.entries = append(doc.entries, newEntry(loc, fields))
		case xml.EndElement:
			return doc, nil
		}
	}
}

func rootElement(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return xml.StartElement{}, errors.New("empty document")
			}
			return xml.StartElement{}, err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se, nil
		}
	}
}

// readFields collects the trimmed text of the direct children of the current
// element that live in namespace ns. The first occurrence of a name wins.
func readFields(dec *xml.Decoder, ns string) (map[string]string, error) {
	fields := make(map[string]string, 4)
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != ns {
				if err := dec.Skip(); err != nil {
					return nil, err
				}
				continue
			}
			var text string
			if err := dec.DecodeElement(&text, &t); err != nil {
				return nil, err
			}
			if _, seen := fields[t.Name.Local]; !seen {
				fields[t.Name.Local] = strings.TrimSpace(text)
			}
		case xml.EndElement:
			return fields, nil
		}
	}
}

func newEntry(loc string, fields map[string]string) Entry {
	e := Entry{URL: loc, ChangeFrequency: fields["changefreq"]}
	if s, ok := fields["lastmod"]; ok {
		if ts, ok := parseLastMod(s); ok {
			e.LastModified = &ts
		}
	}
	if s, ok := fields["priority"]; ok {
		if p, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(p) && !math.IsInf(p, 0) {
			e.Priority = &p
		}
	}
	return e
}

// W3C Datetime profile used by sitemaps, most specific first.
var lastModLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-01",
}

// parseLastMod is best-effort: W3C layouts first, then dateparse for the
// assortment of formats found in the wild. Times without a zone are UTC.
func parseLastMod(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range lastModLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	ts, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
