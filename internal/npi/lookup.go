package npi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gyeh/npi-lookup/internal/metrics"
)

// DefaultRegistryURL is the public NPPES NPI Registry API endpoint.
const DefaultRegistryURL = "https://npiregistry.cms.hhs.gov/api/"

const apiVersion = "2.1"

// PhoneNotFound is reported when a provider has no practice or mailing phone.
const PhoneNotFound = "Not Found"

// Provider holds the fields extracted from a registry record.
type Provider struct {
	NPI   string
	Type  string // "Individual" or "Organization"
	Name  string // "FIRST LAST CREDENTIAL" for individuals, org name for organizations
	Phone string
}

type apiResponse struct {
	ResultCount int         `json:"result_count"`
	Results     []apiResult `json:"results"`
	Errors      []apiError  `json:"Errors"`
}

type apiError struct {
	Description string `json:"description"`
	Field       string `json:"field"`
}

type apiResult struct {
	Number          string       `json:"number"`
	EnumerationType string       `json:"enumeration_type"`
	Basic           apiBasic     `json:"basic"`
	Addresses       []apiAddress `json:"addresses"`
}

type apiBasic struct {
	// Individual fields
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Credential string `json:"credential"`

	// Organization fields
	OrganizationName string `json:"organization_name"`
}

type apiAddress struct {
	AddressPurpose string `json:"address_purpose"` // "LOCATION" or "MAILING"
	Phone          string `json:"telephone_number"`
}

// Client queries the NPPES NPI Registry.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a registry client. An empty baseURL selects
// DefaultRegistryURL; a zero timeout leaves requests unbounded.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultRegistryURL
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Lookup queries the registry for a single NPI number.
// Returns nil if the NPI is not found.
func (c *Client) Lookup(ctx context.Context, number string) (*Provider, error) {
	u, err := c.lookupURL(number)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.RegistryRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("querying NPI registry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("NPI registry returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading NPI registry response: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("parsing NPI registry response: %w", err)
	}

	if len(apiResp.Errors) > 0 {
		return nil, fmt.Errorf("NPI registry rejected request: %s", apiResp.Errors[0].Description)
	}

	if apiResp.ResultCount == 0 {
		return nil, nil
	}
	if len(apiResp.Results) == 0 {
		return nil, fmt.Errorf("NPI registry reported %d results but returned none", apiResp.ResultCount)
	}

	p := resultToProvider(apiResp.Results[0])
	if p.NPI == "" {
		p.NPI = number
	}
	return p, nil
}

func (c *Client) lookupURL(number string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing registry URL: %w", err)
	}
	q := u.Query()
	q.Set("version", apiVersion)
	q.Set("number", number)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func resultToProvider(r apiResult) *Provider {
	p := &Provider{NPI: r.Number}

	if r.EnumerationType == "NPI-2" {
		p.Type = "Organization"
	} else {
		p.Type = "Individual"
	}

	p.Name = formatName(r.Basic)
	if p.Name == "" {
		p.Name = cleanField(r.Basic.OrganizationName)
	}

	p.Phone = primaryPhone(r.Addresses)
	return p
}

// primaryPhone prefers the first practice location phone, then the first
// mailing address phone.
func primaryPhone(addrs []apiAddress) string {
	for _, purpose := range []string{"LOCATION", "MAILING"} {
		for _, addr := range addrs {
			if addr.AddressPurpose != purpose {
				continue
			}
			if phone := strings.TrimSpace(addr.Phone); phone != "" {
				return phone
			}
			break
		}
	}
	return PhoneNotFound
}

func formatName(b apiBasic) string {
	if cleanField(b.FirstName) == "" && cleanField(b.LastName) == "" {
		return ""
	}
	var parts []string
	for _, s := range []string{b.FirstName, b.LastName, b.Credential} {
		if s = cleanField(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func cleanField(s string) string {
	s = strings.TrimSpace(s)
	if s == "--" || s == "" {
		return ""
	}
	return s
}
