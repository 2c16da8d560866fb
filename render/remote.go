package render

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Response headers carrying the pixel size of a rendered page.
const (
	HeaderBitmapWidth  = "X-Bitmap-Width"
	HeaderBitmapHeight = "X-Bitmap-Height"
)

// DocumentInfo is the body of GET /api/render/document.
type DocumentInfo struct {
	Source   string     `json:"src"`
	NumPages int        `json:"numPages"`
	Pages    []PageSize `json:"pages"`
}

// PageSize is a page size in points (scale 1).
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// TextInfo is the body of GET /api/render/text.
type TextInfo struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

// RemoteEngine talks to the server render API. It is what the browser uses.
type RemoteEngine struct {
	BaseURL string // "" means same origin
	Client  *http.Client
}

// NewRemoteEngine creates a RemoteEngine for the API at baseURL.
func NewRemoteEngine(baseURL string) *RemoteEngine {
	return &RemoteEngine{BaseURL: strings.TrimSuffix(baseURL, "/"), Client: http.DefaultClient}
}

func (e *RemoteEngine) client() *http.Client {
	if e.Client == nil {
		return http.DefaultClient
	}
	return e.Client
}

func (e *RemoteEngine) get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	u := e.BaseURL + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.client().Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %s", path, resp.Status)
	}
	return resp, nil
}

// Open implements Engine.
func (e *RemoteEngine) Open(ctx context.Context, source string) (Document, error) {
	resp, err := e.get(ctx, "/api/render/document", url.Values{"src": {source}})
	if err != nil {
		return nil, fmt.Errorf("unable to open document %s: %w", source, err)
	}
	defer resp.Body.Close()

	var info DocumentInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("unable to decode document info for %s: %w", source, err)
	}
	if info.NumPages < 1 {
		return nil, fmt.Errorf("document %s has no pages", source)
	}
	info.Source = source
	return &remoteDocument{engine: e, info: info}, nil
}

// Text fetches the plain text of a page.
func (e *RemoteEngine) Text(ctx context.Context, source string, page int) (string, error) {
	resp, err := e.get(ctx, "/api/render/text", url.Values{
		"src":  {source},
		"page": {strconv.Itoa(page)},
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	var info TextInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("unable to decode text for page %d: %w", page, err)
	}
	return info.Text, nil
}

type remoteDocument struct {
	engine *RemoteEngine
	info   DocumentInfo
}

func (d *remoteDocument) Source() string { return d.info.Source }
func (d *remoteDocument) NumPages() int  { return d.info.NumPages }
func (d *remoteDocument) Close() error   { return nil }

func (d *remoteDocument) Page(ctx context.Context, n int) (Page, error) {
	if n < 1 || n > d.info.NumPages {
		return nil, fmt.Errorf("page %d out of range [1, %d]", n, d.info.NumPages)
	}
	var size PageSize
	if n <= len(d.info.Pages) {
		size = d.info.Pages[n-1]
	}
	return &remotePage{doc: d, number: n, size: size}, nil
}

type remotePage struct {
	doc    *remoteDocument
	number int
	size   PageSize
}

func (p *remotePage) Number() int { return p.number }

func (p *remotePage) Viewport(scale float64) Viewport {
	return Viewport{
		Scale:  scale,
		Width:  int(math.Round(p.size.Width * scale)),
		Height: int(math.Round(p.size.Height * scale)),
	}
}

func (p *remotePage) Render(ctx context.Context, s Surface, vp Viewport) error {
	q := url.Values{
		"src":   {p.doc.info.Source},
		"page":  {strconv.Itoa(p.number)},
		"scale": {strconv.FormatFloat(vp.Scale, 'f', -1, 64)},
	}
	if vp.MaxWidth > 0 {
		q.Set("maxWidth", strconv.Itoa(vp.MaxWidth))
	}
	if vp.MaxHeight > 0 {
		q.Set("maxHeight", strconv.Itoa(vp.MaxHeight))
	}
	resp, err := p.doc.engine.get(ctx, "/api/render/page", q)
	if err != nil {
		return fmt.Errorf("unable to render page %d: %w", p.number, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("unable to read page %d: %w", p.number, err)
	}
	b := Bitmap{
		Page:        p.number,
		Width:       vp.Width,
		Height:      vp.Height,
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}
	if w, err := strconv.Atoi(resp.Header.Get(HeaderBitmapWidth)); err == nil {
		b.Width = w
	}
	if h, err := strconv.Atoi(resp.Header.Get(HeaderBitmapHeight)); err == nil {
		b.Height = h
	}
	return s.Paint(b)
}
