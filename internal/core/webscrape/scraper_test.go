package webscrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestExtractURLs(t *testing.T) {
	text := `Compare https://sam.gov/opp/abc/view, and see http://example.com/page. Also ftp://nope and https://`
	got := ExtractURLs(text)
	want := []string{"https://sam.gov/opp/abc/view", "http://example.com/page"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExtractURLs = %v, want %v", got, want)
	}
}

func TestExtractURLsNone(t *testing.T) {
	if got := ExtractURLs("no links here"); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestIsValidURL(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"https://example.com", true},
		{"http://example.com/a?b=c", true},
		{"ftp://example.com", false},
		{"https://", false},
		{"not a url", false},
	}
	for _, c := range cases {
		if got := IsValidURL(c.in); got != c.want {
			t.Errorf("IsValidURL(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

const pageHTML = `<html>
<head><title>Widget RFP</title><script>alert("x")</script></head>
<body>
<nav>Home | About</nav>
<h1>Request for Proposals</h1>
<p>The agency seeks widgets.</p>
<ul><li>Due March 1</li></ul>
<footer>Copyright</footer>
</body></html>`

func TestFetchContentExtractsMainText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(pageHTML))
	}))
	defer srv.Close()

	s := NewScraper()
	s.sleep = func(time.Duration) {}

	content, err := s.FetchContent(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"Widget RFP", "Request for Proposals", "The agency seeks widgets.", "Due March 1"} {
		if !strings.Contains(content, want) {
			t.Errorf("content missing %q:\n%s", want, content)
		}
	}
	for _, banned := range []string{"alert", "Home | About", "Copyright"} {
		if strings.Contains(content, banned) {
			t.Errorf("content should not contain %q:\n%s", banned, content)
		}
	}
}

func TestFetchContentRetriesOn429(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(pageHTML))
	}))
	defer srv.Close()

	s := NewScraper()
	var delays []time.Duration
	s.sleep = func(d time.Duration) { delays = append(delays, d) }

	content, err := s.FetchContent(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(content, "Widget RFP") {
		t.Fatalf("unexpected content: %s", content)
	}
	if len(delays) != 1 || delays[0] != time.Second {
		t.Fatalf("expected one 1s backoff, got %v", delays)
	}
}

func TestFetchContentNon200Terminal(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	s := NewScraper()
	s.sleep = func(time.Duration) {}

	if _, err := s.FetchContent(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error on 404")
	}
	if hits != 1 {
		t.Fatalf("expected no retries on 404, got %d hits", hits)
	}
}

func TestFetchContentRejectsInvalidURL(t *testing.T) {
	s := NewScraper()
	if _, err := s.FetchContent(context.Background(), "ftp://example.com"); err == nil {
		t.Fatal("expected error for non-http url")
	}
}
