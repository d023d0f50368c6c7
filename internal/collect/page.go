package collect

import (
	"context"
	"fmt"

	"github.com/startuplens/ycscout/internal/browser"
)

// PageSession adapts a live browser session to the ListingPage seam. All
// DOM inspection happens through injected JavaScript so the selector set
// stays data, not code.
type PageSession struct {
	session *browser.Session
}

var _ ListingPage = (*PageSession)(nil)

func NewPageSession(s *browser.Session) *PageSession {
	return &PageSession{session: s}
}

func (p *PageSession) Navigate(ctx context.Context, url string) error {
	return p.session.Navigate(ctx, url)
}

func (p *PageSession) ScrollToBottom(ctx context.Context) error {
	return p.session.Evaluate(ctx, `window.scrollTo(0, document.body.scrollHeight)`, nil)
}

func (p *PageSession) CountMatches(ctx context.Context, selector string) (int, error) {
	var n int
	script := fmt.Sprintf(`document.querySelectorAll(%q).length`, selector)
	if err := p.session.Evaluate(ctx, script, &n); err != nil {
		return 0, err
	}
	return n, nil
}

func (p *PageSession) Cards(ctx context.Context, selector string) ([]Card, error) {
	var cards []Card
	if err := p.session.Evaluate(ctx, cardScript(selector), &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

func (p *PageSession) ClickLoadMore(ctx context.Context) (bool, error) {
	var clicked bool
	if err := p.session.Evaluate(ctx, loadMoreScript, &clicked); err != nil {
		return false, err
	}
	return clicked, nil
}

func (p *PageSession) HTML(ctx context.Context) (string, error) {
	var html string
	if err := p.session.Evaluate(ctx, `document.documentElement.outerHTML`, &html); err != nil {
		return "", err
	}
	return html, nil
}

// cardScript serializes every element matching the listing selector into
// its visible text plus the nearest detail-page href. Elements that are
// themselves anchors contribute their own href.
func cardScript(selector string) string {
	return fmt.Sprintf(`
		(function() {
			var nodes = document.querySelectorAll(%q);
			var out = [];
			for (var i = 0; i < nodes.length; i++) {
				var el = nodes[i];
				var href = '';
				if (el.tagName === 'A' && el.getAttribute('href')) {
					href = el.getAttribute('href');
				} else {
					var a = el.querySelector("a[href*='/companies/']");
					if (a) { href = a.getAttribute('href'); }
				}
				out.push({ text: el.innerText || '', href: href });
			}
			return out;
		})()
	`, selector)
}

// loadMoreScript clicks the first visible load-more style control, if any.
const loadMoreScript = `
	(function() {
		var pattern = /load more|show more/i;
		var candidates = document.querySelectorAll('button, a');
		for (var i = 0; i < candidates.length; i++) {
			if (pattern.test(candidates[i].textContent || '')) {
				candidates[i].click();
				return true;
			}
		}
		return false;
	})()
`
