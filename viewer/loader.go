package viewer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/drummonds/bookview/render"
)

// DefaultDocumentID is used when the page URL names no document.
const DefaultDocumentID = "DA"

// DocumentParam is the query parameter naming the document to open.
const DocumentParam = "doc"

var documentIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Chapter is a table-of-contents entry.
type Chapter struct {
	Title string `json:"title"`
	Page  int    `json:"page"`
}

// Manifest is the configuration resource describing one document.
type Manifest struct {
	Title    string    `json:"title,omitempty"`
	PDFURL   string    `json:"pdfUrl"`
	Chapters []Chapter `json:"chapters"`
}

// LoadError is any failure to fetch the manifest or open the document.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("unable to load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Message is the inline text shown in place of the viewer.
func (e *LoadError) Message() string {
	return fmt.Sprintf("Error loading PDF (%s). Please ensure the file exists.", e.Path)
}

// Loaded is a successfully opened document.
type Loaded struct {
	ID       string
	Manifest Manifest
	Document render.Document
}

// ResolveDocumentID returns the document id named by u, or fallback.
func ResolveDocumentID(u *url.URL, fallback string) string {
	if u != nil {
		if id := u.Query().Get(DocumentParam); documentIDPattern.MatchString(id) {
			return id
		}
	}
	return fallback
}

// Loader fetches manifests and opens the documents they describe.
type Loader struct {
	// BaseURL is the origin manifests are fetched from; "" means relative.
	BaseURL string
	// LibraryPrefix is the URL path the library is served under.
	LibraryPrefix string
	Client        *http.Client
	Engine        render.Engine
}

// ManifestPath returns the URL path of the manifest for id.
func (l *Loader) ManifestPath(id string) string {
	prefix := strings.TrimSuffix(l.LibraryPrefix, "/")
	return fmt.Sprintf("%s/%s/%s.json", prefix, id, id)
}

// FetchManifest downloads and decodes the manifest for id.
func (l *Loader) FetchManifest(ctx context.Context, id string) (Manifest, string, error) {
	manifestURL := l.BaseURL + l.ManifestPath(id)
	var m Manifest

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, manifestURL, nil)
	if err != nil {
		return m, manifestURL, &LoadError{Path: manifestURL, Err: err}
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return m, manifestURL, &LoadError{Path: manifestURL, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return m, manifestURL, &LoadError{Path: manifestURL, Err: fmt.Errorf("HTTP %s", resp.Status)}
	}
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return m, manifestURL, &LoadError{Path: manifestURL, Err: fmt.Errorf("malformed manifest: %w", err)}
	}
	if m.PDFURL == "" {
		return m, manifestURL, &LoadError{Path: manifestURL, Err: fmt.Errorf("manifest has no pdfUrl")}
	}
	return m, manifestURL, nil
}

// Load fetches the manifest for id and opens its document. Nothing is retried.
func (l *Loader) Load(ctx context.Context, id string) (*Loaded, error) {
	m, manifestURL, err := l.FetchManifest(ctx, id)
	if err != nil {
		Logger.Error("Unable to fetch manifest", "id", id, "error", err)
		return nil, err
	}

	source := resolveReference(manifestURL, m.PDFURL)
	doc, err := l.Engine.Open(ctx, source)
	if err != nil {
		Logger.Error("Unable to open document", "id", id, "source", source, "error", err)
		return nil, &LoadError{Path: source, Err: err}
	}
	m.PDFURL = source
	m.Chapters = validChapters(m.Chapters, doc.NumPages())

	Logger.Info("Document loaded", "id", id, "source", source, "pages", doc.NumPages(), "chapters", len(m.Chapters))
	return &Loaded{ID: id, Manifest: m, Document: doc}, nil
}

// resolveReference resolves ref against the manifest URL. Absolute URLs and
// absolute paths are returned unchanged.
func resolveReference(manifestURL, ref string) string {
	if strings.HasPrefix(ref, "/") {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil || refURL.IsAbs() {
		return ref
	}
	base, err := url.Parse(manifestURL)
	if err != nil {
		return ref
	}
	resolved := base.ResolveReference(refURL)
	if base.Host == "" {
		return resolved.Path
	}
	return resolved.String()
}

func validChapters(chapters []Chapter, total int) []Chapter {
	valid := make([]Chapter, 0, len(chapters))
	for _, ch := range chapters {
		if ch.Page < 1 || ch.Page > total {
			Logger.Warn("Dropping chapter outside document", "title", ch.Title, "page", ch.Page, "pages", total)
			continue
		}
		valid = append(valid, ch)
	}
	return valid
}
