package viewer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/drummonds/bookview/render"
)

type fakeEngine struct {
	doc     *fakeDocument
	openErr error
	opened  []string
}

func (e *fakeEngine) Open(ctx context.Context, source string) (render.Document, error) {
	e.opened = append(e.opened, source)
	if e.openErr != nil {
		return nil, e.openErr
	}
	e.doc.source = source
	return e.doc, nil
}

func newManifestServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/library/DA/DA.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLoadResolvesManifest(t *testing.T) {
	srv := newManifestServer(t, `{
		"pdfUrl": "DA.pdf",
		"chapters": [
			{"title": "Introduction", "page": 1},
			{"title": "Structures", "page": 4},
			{"title": "Appendix", "page": 40}
		]
	}`, http.StatusOK)

	engine := &fakeEngine{doc: newFakeDocument(12)}
	loader := &Loader{BaseURL: srv.URL, LibraryPrefix: "/library", Engine: engine}

	loaded, err := loader.Load(context.Background(), "DA")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	wantSource := srv.URL + "/library/DA/DA.pdf"
	if diff := cmp.Diff([]string{wantSource}, engine.opened); diff != "" {
		t.Errorf("opened sources mismatch (-want +got):\n%s", diff)
	}
	wantChapters := []Chapter{{"Introduction", 1}, {"Structures", 4}}
	if diff := cmp.Diff(wantChapters, loaded.Manifest.Chapters); diff != "" {
		t.Errorf("chapters mismatch (-want +got):\n%s", diff)
	}
	if loaded.Document.NumPages() != 12 {
		t.Errorf("Expected 12 pages, got %d", loaded.Document.NumPages())
	}
}

func TestLoadFailures(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		status   int
		openErr  error
		wantPath string
	}{
		{
			name:     "missing manifest",
			body:     `not found`,
			status:   http.StatusNotFound,
			wantPath: "/library/DA/DA.json",
		},
		{
			name:     "malformed manifest",
			body:     `{"pdfUrl": `,
			status:   http.StatusOK,
			wantPath: "/library/DA/DA.json",
		},
		{
			name:     "manifest without document",
			body:     `{"chapters": []}`,
			status:   http.StatusOK,
			wantPath: "/library/DA/DA.json",
		},
		{
			name:     "document fails to open",
			body:     `{"pdfUrl": "/library/DA/DA.pdf"}`,
			status:   http.StatusOK,
			openErr:  errors.New("invalid PDF structure"),
			wantPath: "/library/DA/DA.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newManifestServer(t, tt.body, tt.status)
			doc := newFakeDocument(3)
			engine := &fakeEngine{doc: doc, openErr: tt.openErr}
			loader := &Loader{BaseURL: srv.URL, LibraryPrefix: "/library/", Engine: engine}

			_, err := loader.Load(context.Background(), "DA")
			var loadErr *LoadError
			if !errors.As(err, &loadErr) {
				t.Fatalf("Expected *LoadError, got %v", err)
			}
			if !strings.Contains(loadErr.Message(), tt.wantPath) {
				t.Errorf("Message %q does not name %q", loadErr.Message(), tt.wantPath)
			}
			if calls := doc.renderCalls(); len(calls) != 0 {
				t.Errorf("A page render was attempted after a load failure: %v", calls)
			}
		})
	}
}

func TestLoadNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	doc := newFakeDocument(3)
	engine := &fakeEngine{doc: doc}
	loader := &Loader{BaseURL: base, LibraryPrefix: "/library", Engine: engine}

	_, err := loader.Load(context.Background(), "DA")
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("Expected *LoadError, got %v", err)
	}
	want := "Error loading PDF (" + base + "/library/DA/DA.json). Please ensure the file exists."
	if loadErr.Message() != want {
		t.Errorf("Message = %q, want %q", loadErr.Message(), want)
	}
	if len(engine.opened) != 0 {
		t.Errorf("Engine opened a document after a network failure")
	}
	if calls := doc.renderCalls(); len(calls) != 0 {
		t.Errorf("A page render was attempted: %v", calls)
	}
}

func TestResolveDocumentID(t *testing.T) {
	tests := []struct {
		rawURL string
		want   string
	}{
		{"/read", "DA"},
		{"/read?doc=HB", "HB"},
		{"/read?doc=", "DA"},
		{"/read?doc=../etc", "DA"},
		{"/read?doc=design_aid-2", "design_aid-2"},
	}
	for _, tt := range tests {
		u, err := url.Parse(tt.rawURL)
		if err != nil {
			t.Fatal(err)
		}
		if got := ResolveDocumentID(u, DefaultDocumentID); got != tt.want {
			t.Errorf("ResolveDocumentID(%q) = %q, want %q", tt.rawURL, got, tt.want)
		}
	}
	if got := ResolveDocumentID(nil, "X"); got != "X" {
		t.Errorf("nil URL should fall back, got %q", got)
	}
}

func TestResolveReference(t *testing.T) {
	tests := []struct {
		manifest, ref, want string
	}{
		{"/library/DA/DA.json", "DA.pdf", "/library/DA/DA.pdf"},
		{"/library/DA/DA.json", "/files/DA.pdf", "/files/DA.pdf"},
		{"http://host/library/DA/DA.json", "DA.pdf", "http://host/library/DA/DA.pdf"},
		{"/library/DA/DA.json", "https://cdn.example.com/DA.pdf", "https://cdn.example.com/DA.pdf"},
	}
	for _, tt := range tests {
		if got := resolveReference(tt.manifest, tt.ref); got != tt.want {
			t.Errorf("resolveReference(%q, %q) = %q, want %q", tt.manifest, tt.ref, got, tt.want)
		}
	}
}
