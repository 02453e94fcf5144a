package service

import (
	"context"
	"errors"
	"testing"

	"github.com/psds-microservice/cityfix/internal/errs"
	"github.com/psds-microservice/cityfix/internal/geocode"
	"github.com/psds-microservice/cityfix/internal/model"
	"github.com/psds-microservice/cityfix/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type stubGeocoder struct {
	place *geocode.Place
	err   error
}

func (s stubGeocoder) Geocode(context.Context, string) (*geocode.Place, error) {
	return s.place, s.err
}

func (s stubGeocoder) Reverse(context.Context, float64, float64) (*geocode.Place, error) {
	return s.place, s.err
}

func TestGeoService_Geocode(t *testing.T) {
	svc := NewGeoService(nil, stubGeocoder{place: &geocode.Place{Lat: 1.5, Lon: 2.5, DisplayName: "Main St, Springfield"}})

	res, err := svc.Geocode(context.Background(), "Main St")
	require.NoError(t, err)
	assert.Equal(t, 1.5, res.Lat)
	assert.Equal(t, "Main St", res.Address)
	assert.Equal(t, "Main St, Springfield", res.DisplayName)

	rev, err := svc.Reverse(context.Background(), 10, 20)
	require.NoError(t, err)
	assert.Equal(t, 10.0, rev.Lat)
	assert.Equal(t, 20.0, rev.Lon)
	assert.Equal(t, "Main St, Springfield", rev.Address)
}

func TestGeoService_GeocodeErrors(t *testing.T) {
	notFound := NewGeoService(nil, stubGeocoder{err: geocode.ErrNotFound})
	_, err := notFound.Geocode(context.Background(), "nowhere")
	assert.ErrorIs(t, err, errs.ErrAddressNotFound)

	broken := NewGeoService(nil, stubGeocoder{err: errors.New("connection refused")})
	_, err = broken.Reverse(context.Background(), 0, 0)
	assert.ErrorIs(t, err, errs.ErrGeocoder)
}

func TestGeoService_Boundaries(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	admin := NewAdminService(db, NewTicketService(db, nil), nil)
	require.NoError(t, admin.CreateMunicipality(ctx, &model.Municipality{
		Name: "Springfield", AdminID: "a1", Bounds: datatypes.JSON(`{"type":"Polygon"}`),
	}))
	require.NoError(t, admin.CreateMunicipality(ctx, &model.Municipality{Name: "Shelbyville", AdminID: "a2"}))

	svc := NewGeoService(db, stubGeocoder{})
	items, err := svc.Boundaries(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.JSONEq(t, `{"type":"Polygon"}`, string(items[0].Bounds))
	assert.Equal(t, "null", string(items[1].Bounds))

	assert.Equal(t, 19, svc.Tiles().MaxZoom)
}
