// Package page fetches product pages and reduces them to the fields a model needs.
package page

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/finansage/finansage/internal/insight"
)

const (
	maxBody   = 4 << 20
	userAgent = "Mozilla/5.0 (compatible; finansage/1.0)"
)

// Fetcher implements insight.PageFetcher over HTTP.
type Fetcher struct {
	Client *http.Client
}

// New returns a Fetcher whose client gives up after timeout.
func New(timeout time.Duration) *Fetcher {
	return &Fetcher{Client: &http.Client{Timeout: timeout}}
}

// Fetch downloads rawURL and extracts title, description, image, price and visible text.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (insight.Page, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return insight.Page{}, fmt.Errorf("invalid page URL %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return insight.Page{}, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return insight.Page{}, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return insight.Page{}, fmt.Errorf("fetching page: status %d", resp.StatusCode)
	}

	p, err := Parse(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return insight.Page{}, err
	}
	p.URL = u.String()
	if p.ImageURL != "" {
		if ref, err := u.Parse(p.ImageURL); err == nil {
			p.ImageURL = ref.String()
		}
	}
	return p, nil
}

// Parse reads an HTML document. URL is left empty.
func Parse(r io.Reader) (insight.Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return insight.Page{}, fmt.Errorf("parsing page: %w", err)
	}

	var p insight.Page
	var text strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Svg, atom.Iframe:
				return
			case atom.Title:
				if p.Title == "" {
					p.Title = collapse(textOf(n))
				}
				return
			case atom.Meta:
				meta(&p, n)
			}
		case html.TextNode:
			if s := collapse(n.Data); s != "" {
				if text.Len() > 0 {
					text.WriteByte(' ')
				}
				text.WriteString(s)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	p.Text = text.String()
	return p, nil
}

func meta(p *insight.Page, n *html.Node) {
	key := strings.ToLower(attr(n, "property"))
	if key == "" {
		key = strings.ToLower(attr(n, "name"))
	}
	content := strings.TrimSpace(attr(n, "content"))
	if content == "" {
		return
	}
	switch key {
	case "description", "og:description":
		if p.Description == "" {
			p.Description = content
		}
	case "og:title":
		if p.Title == "" {
			p.Title = content
		}
	case "og:image", "og:image:url", "twitter:image":
		if p.ImageURL == "" {
			p.ImageURL = content
		}
	case "product:price:amount", "og:price:amount":
		if p.Price == "" {
			p.Price = content
		}
	}
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
