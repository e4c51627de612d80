package texture

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/MobRulesGames/mapasset/base"
)

// Fetcher retrieves the encoded bytes of an image given its source locator.
// It either returns a reader or an error; the manager never looks further.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) (io.ReadCloser, error)
}

type FetcherFunc func(ctx context.Context, locator string) (io.ReadCloser, error)

func (f FetcherFunc) Fetch(ctx context.Context, locator string) (io.ReadCloser, error) {
	return f(ctx, locator)
}

// FileFetcher reads locators as slash-separated paths under Root. A leading
// '/' is ignored and locators can't climb out of Root.
type FileFetcher struct {
	Root string
}

func (f FileFetcher) Fetch(ctx context.Context, locator string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if locator == "" {
		return nil, fmt.Errorf("empty source locator")
	}
	rel := path.Clean("/" + locator)[1:]
	full := filepath.Join(f.Root, filepath.FromSlash(rel))
	base.CheckPathCasing(full)
	file, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("couldn't open %q: %w", full, err)
	}
	return file, nil
}

// HTTPFetcher GETs locators, resolving relative ones against BaseURL.
type HTTPFetcher struct {
	BaseURL string

	// http.DefaultClient if nil.
	Client *http.Client
}

func (f HTTPFetcher) Fetch(ctx context.Context, locator string) (io.ReadCloser, error) {
	ref, err := url.Parse(locator)
	if err != nil {
		return nil, fmt.Errorf("bad source locator %q: %w", locator, err)
	}
	if f.BaseURL != "" {
		baseURL, err := url.Parse(f.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("bad base url %q: %w", f.BaseURL, err)
		}
		ref = baseURL.ResolveReference(ref)
	}
	if !ref.IsAbs() {
		return nil, fmt.Errorf("source locator %q has no scheme and no base url is set", locator)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.String(), nil)
	if err != nil {
		return nil, err
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %s", ref, resp.Status)
	}
	return resp.Body, nil
}
