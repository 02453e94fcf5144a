package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/psds-microservice/cityfix/internal/errs"
	"github.com/psds-microservice/cityfix/internal/geocode"
	"github.com/psds-microservice/cityfix/internal/model"
	"gorm.io/gorm"
)

type GeocodeResult struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Address     string  `json:"address"`
	DisplayName string  `json:"display_name"`
}

type MapTiles struct {
	TileURL     string `json:"tile_url"`
	Attribution string `json:"attribution"`
	MaxZoom     int    `json:"max_zoom"`
}

type Boundary struct {
	MunicipalityID string          `json:"municipality_id"`
	Name           string          `json:"name"`
	Bounds         json.RawMessage `json:"bounds"`
}

var defaultTiles = MapTiles{
	TileURL:     "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
	Attribution: "© OpenStreetMap contributors",
	MaxZoom:     19,
}

type GeoService struct {
	db       *gorm.DB
	geocoder geocode.Geocoder
}

func NewGeoService(db *gorm.DB, geocoder geocode.Geocoder) *GeoService {
	return &GeoService{db: db, geocoder: geocoder}
}

func mapGeocodeErr(err error) error {
	if errors.Is(err, geocode.ErrNotFound) {
		return errs.ErrAddressNotFound
	}
	return fmt.Errorf("%w: %v", errs.ErrGeocoder, err)
}

func (s *GeoService) Geocode(ctx context.Context, address string) (*GeocodeResult, error) {
	p, err := s.geocoder.Geocode(ctx, address)
	if err != nil {
		return nil, mapGeocodeErr(err)
	}
	return &GeocodeResult{Lat: p.Lat, Lon: p.Lon, Address: address, DisplayName: p.DisplayName}, nil
}

// Reverse возвращает исходные координаты запроса, а не уточнённые провайдером.
func (s *GeoService) Reverse(ctx context.Context, lat, lon float64) (*GeocodeResult, error) {
	p, err := s.geocoder.Reverse(ctx, lat, lon)
	if err != nil {
		return nil, mapGeocodeErr(err)
	}
	return &GeocodeResult{Lat: lat, Lon: lon, Address: p.DisplayName, DisplayName: p.DisplayName}, nil
}

func (s *GeoService) Tiles() MapTiles {
	return defaultTiles
}

func (s *GeoService) Boundaries(ctx context.Context) ([]Boundary, error) {
	var items []model.Municipality
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	out := make([]Boundary, 0, len(items))
	for _, m := range items {
		b := Boundary{MunicipalityID: m.ID, Name: m.Name, Bounds: json.RawMessage("null")}
		if len(m.Bounds) > 0 {
			b.Bounds = json.RawMessage(m.Bounds)
		}
		out = append(out, b)
	}
	return out, nil
}
