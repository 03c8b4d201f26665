package npi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"
)

// serveRegistry starts a fake registry that answers every request with body.
// The returned func reports the query of the last request received.
func serveRegistry(t *testing.T, status int, body string) (*httptest.Server, func() url.Values) {
	t.Helper()
	var (
		mu   sync.Mutex
		last url.Values
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		last = r.URL.Query()
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, func() url.Values {
		mu.Lock()
		defer mu.Unlock()
		return last
	}
}

func TestLookup_Individual(t *testing.T) {
	body := `{
	"result_count": 1,
	"results": [
		{
			"number": "1316924913",
			"enumeration_type": "NPI-1",
			"basic": {"first_name": "JANE", "last_name": "DOE", "credential": "MD", "status": "A"},
			"addresses": [
				{"address_purpose": "MAILING", "telephone_number": "555-000-0000"},
				{"address_purpose": "LOCATION", "telephone_number": "555-123-4567"}
			]
		}
	]
}`
	srv, lastQuery := serveRegistry(t, http.StatusOK, body)

	p, err := NewClient(srv.URL+"/api/", time.Second).Lookup(context.Background(), "1316924913")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if p == nil {
		t.Fatal("expected provider, got nil")
	}

	if q := lastQuery(); q.Get("version") != "2.1" || q.Get("number") != "1316924913" {
		t.Errorf("unexpected query: %s", q.Encode())
	}
	if p.Name != "JANE DOE MD" {
		t.Errorf("expected name %q, got %q", "JANE DOE MD", p.Name)
	}
	if p.Phone != "555-123-4567" {
		t.Errorf("expected location phone, got %q", p.Phone)
	}
	if p.Type != "Individual" {
		t.Errorf("expected Individual, got %q", p.Type)
	}
}

func TestLookup_NotFound(t *testing.T) {
	srv, _ := serveRegistry(t, http.StatusOK, `{"result_count": 0, "results": []}`)

	p, err := NewClient(srv.URL, time.Second).Lookup(context.Background(), "1234567890")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if p != nil {
		t.Errorf("expected nil provider, got %+v", p)
	}
}

func TestLookup_MailingPhoneFallback(t *testing.T) {
	body := `{"result_count": 1, "results": [{
		"basic": {"first_name": "A", "last_name": "B"},
		"addresses": [{"address_purpose": "MAILING", "telephone_number": "555-1212"}]
	}]}`
	srv, _ := serveRegistry(t, http.StatusOK, body)

	p, err := NewClient(srv.URL, time.Second).Lookup(context.Background(), "1234567890")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if p.Phone != "555-1212" {
		t.Errorf("expected mailing phone 555-1212, got %q", p.Phone)
	}
	if p.NPI != "1234567890" {
		t.Errorf("expected NPI to default to the requested number, got %q", p.NPI)
	}
}

func TestLookup_EmptyLocationPhoneFallsBackToMailing(t *testing.T) {
	body := `{"result_count": 1, "results": [{
		"basic": {"first_name": "A", "last_name": "B"},
		"addresses": [
			{"address_purpose": "LOCATION", "telephone_number": ""},
			{"address_purpose": "MAILING", "telephone_number": "555-1212"}
		]
	}]}`
	srv, _ := serveRegistry(t, http.StatusOK, body)

	p, err := NewClient(srv.URL, time.Second).Lookup(context.Background(), "1234567890")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if p.Phone != "555-1212" {
		t.Errorf("expected mailing phone 555-1212 when location phone is blank, got %q", p.Phone)
	}
}

func TestLookup_NoAddresses(t *testing.T) {
	body := `{"result_count": 1, "results": [{"basic": {"first_name": "A", "last_name": "B", "credential": "--"}}]}`
	srv, _ := serveRegistry(t, http.StatusOK, body)

	p, err := NewClient(srv.URL, time.Second).Lookup(context.Background(), "1234567890")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if p.Phone != PhoneNotFound {
		t.Errorf("expected %q, got %q", PhoneNotFound, p.Phone)
	}
	if p.Name != "A B" {
		t.Errorf("expected placeholder credential to be dropped, got %q", p.Name)
	}
}

func TestLookup_Organization(t *testing.T) {
	body := `{"result_count": 1, "results": [{
		"enumeration_type": "NPI-2",
		"basic": {"organization_name": "ACME CLINIC LLC"},
		"addresses": [{"address_purpose": "LOCATION", "telephone_number": "555-999-0000"}]
	}]}`
	srv, _ := serveRegistry(t, http.StatusOK, body)

	p, err := NewClient(srv.URL, time.Second).Lookup(context.Background(), "1234567890")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if p.Name != "ACME CLINIC LLC" {
		t.Errorf("expected organization name, got %q", p.Name)
	}
	if p.Type != "Organization" {
		t.Errorf("expected Organization, got %q", p.Type)
	}
}

func TestLookup_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"http status", http.StatusInternalServerError, `oops`, "HTTP 500"},
		{"malformed json", http.StatusOK, `{"result_count": `, "parsing NPI registry response"},
		{"registry errors", http.StatusOK, `{"Errors": [{"description": "Field number requires number", "field": "number"}]}`, "Field number requires number"},
		{"count without results", http.StatusOK, `{"result_count": 1, "results": []}`, "reported 1 results but returned none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := serveRegistry(t, tt.status, tt.body)
			_, err := NewClient(srv.URL, time.Second).Lookup(context.Background(), "1234567890")
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLookup_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	closedURL := srv.URL
	srv.Close()

	_, err := NewClient(closedURL, time.Second).Lookup(context.Background(), "1234567890")
	if err == nil || !strings.Contains(err.Error(), "querying NPI registry") {
		t.Errorf("expected transport error, got %v", err)
	}
}

func TestNewClient_DefaultURL(t *testing.T) {
	c := NewClient("", 0)
	u, err := c.lookupURL("1234567890")
	if err != nil {
		t.Fatalf("lookupURL failed: %v", err)
	}
	if !strings.HasPrefix(u, DefaultRegistryURL+"?") {
		t.Errorf("expected default registry URL, got %s", u)
	}
	if !strings.Contains(u, "version=2.1") || !strings.Contains(u, "number=1234567890") {
		t.Errorf("missing query parameters: %s", u)
	}
}
