// Package geocode переводит адреса в координаты и обратно.
package geocode

import (
	"context"
	"errors"
)

// ErrNotFound — провайдер не нашёл адрес или точку.
var ErrNotFound = errors.New("geocode: not found")

type Place struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	DisplayName string  `json:"display_name"`
}

type Geocoder interface {
	Geocode(ctx context.Context, address string) (*Place, error)
	Reverse(ctx context.Context, lat, lon float64) (*Place, error)
}
