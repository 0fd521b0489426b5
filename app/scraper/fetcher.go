package scraper

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"

	"GoEstateAI/app/domain"
	"GoEstateAI/app/utils/restclient"
)

// Fetcher returns the HTML of a page.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

var (
	_ Fetcher = &HTTPFetcher{}
	_ Fetcher = &BrowserFetcher{}
)

// HTTPFetcher downloads raw HTML without executing scripts.
type HTTPFetcher struct {
	client *restclient.RestClient
}

func NewHTTPFetcher(userAgent string, timeout time.Duration) *HTTPFetcher {
	headers := map[string]string{"Accept": "text/html,application/xhtml+xml"}
	if userAgent != "" {
		headers["User-Agent"] = userAgent
	}
	return &HTTPFetcher{client: restclient.NewRestClient("", headers, timeout)}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	if err := validateURL(pageURL); err != nil {
		return "", err
	}
	body, _, err := f.client.Get(ctx, pageURL, nil)
	if err != nil {
		return "", domain.FetchError("http_fetch", err)
	}
	return string(body), nil
}

// BrowserFetcher renders the page in headless Chrome so script-built DOM is
// present. Every call starts and tears down its own browser.
type BrowserFetcher struct {
	userAgent string
	execPath  string
}

func NewBrowserFetcher(userAgent, execPath string) *BrowserFetcher {
	return &BrowserFetcher{userAgent: userAgent, execPath: execPath}
}

func (f *BrowserFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	if err := validateURL(pageURL); err != nil {
		return "", err
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", true))
	if f.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(f.userAgent))
	}
	if f.execPath != "" {
		opts = append(opts, chromedp.ExecPath(f.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	var out string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &out, chromedp.ByQuery),
	)
	if err != nil {
		return "", domain.FetchError("browser_fetch", err)
	}
	return out, nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.FetchError("validate_url", fmt.Errorf("invalid url: %q", raw))
	}
	return nil
}
