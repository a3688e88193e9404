package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
	"time"
)

// IPAPI geolocates addresses with an ip-api.com compatible endpoint.
type IPAPI struct {
	client  *http.Client
	baseURL string
}

// NewIPAPI builds a geolocator against baseURL.
func NewIPAPI(client *http.Client, baseURL string) *IPAPI {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &IPAPI{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

type ipAPIResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	City       string `json:"city"`
	Region     string `json:"region"`
	RegionName string `json:"regionName"`
	Country    string `json:"country"`
}

// Locate returns "City, Region" when known, otherwise the country.
func (g *IPAPI) Locate(ctx context.Context, addr netip.Addr) (string, error) {
	url := fmt.Sprintf("%s/%s?fields=status,message,city,region,regionName,country", g.baseURL, addr.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build geolocation request: %w", err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("geolocation request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("geolocation returned status %d", resp.StatusCode)
	}

	var body ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode geolocation response: %w", err)
	}
	if body.Status != "success" {
		return "", fmt.Errorf("geolocation failed: %s", body.Message)
	}

	region := body.Region
	if region == "" {
		region = body.RegionName
	}
	switch {
	case body.City != "" && region != "":
		return body.City + ", " + region, nil
	case body.City != "":
		return body.City, nil
	case body.Country != "":
		return body.Country, nil
	}
	return "", fmt.Errorf("geolocation returned no location")
}

var _ Geolocator = (*IPAPI)(nil)
