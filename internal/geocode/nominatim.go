package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const userAgent = "cityfix_geoservice"

// Nominatim — клиент Nominatim-совместимого API (/search, /reverse).
type Nominatim struct {
	baseURL    string
	httpClient *http.Client
}

func NewNominatim(baseURL string) *Nominatim {
	return &Nominatim{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

func (p nominatimPlace) toPlace() (*Place, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("nominatim: lat %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("nominatim: lon %q: %w", p.Lon, err)
	}
	return &Place{Lat: lat, Lon: lon, DisplayName: p.DisplayName}, nil
}

func (n *Nominatim) get(ctx context.Context, path string, q url.Values, out any) error {
	q.Set("format", "json")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("nominatim: new request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("nominatim: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("nominatim: status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("nominatim: decode: %w", err)
	}
	return nil
}

func (n *Nominatim) Geocode(ctx context.Context, address string) (*Place, error) {
	var places []nominatimPlace
	q := url.Values{"q": {address}, "limit": {"1"}}
	if err := n.get(ctx, "/search", q, &places); err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return nil, ErrNotFound
	}
	return places[0].toPlace()
}

func (n *Nominatim) Reverse(ctx context.Context, lat, lon float64) (*Place, error) {
	var p nominatimPlace
	q := url.Values{
		"lat": {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon": {strconv.FormatFloat(lon, 'f', -1, 64)},
	}
	if err := n.get(ctx, "/reverse", q, &p); err != nil {
		return nil, err
	}
	if p.Error != "" || p.DisplayName == "" {
		return nil, ErrNotFound
	}
	return p.toPlace()
}
