package service

import (
	"context"
	"testing"

	"github.com/psds-microservice/cityfix/internal/errs"
	"github.com/psds-microservice/cityfix/internal/model"
	"github.com/psds-microservice/cityfix/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func newAdminFixture(t *testing.T) (*AdminService, *TicketService) {
	t.Helper()
	db := testutil.NewDB(t)
	clock := NewClock(nil)
	tickets := NewTicketService(db, clock)
	return NewAdminService(db, tickets, clock), tickets
}

func TestAdminService_StatsBuckets(t *testing.T) {
	admin, tickets := newAdminFixture(t)
	ctx := context.Background()

	var created []*model.Ticket
	for _, tenant := range []string{"m1", "m1", "m2"} {
		tk := newTicket("T", tenant, "u1")
		require.NoError(t, tickets.Create(ctx, tk))
		created = append(created, tk)
	}
	_, err := tickets.Update(ctx, created[2].ID, TicketUpdate{Status: strPtr("completed")})
	require.NoError(t, err)

	st, err := admin.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, st.TotalTickets)
	assert.EqualValues(t, 2, st.PendingTickets)
	assert.EqualValues(t, 0, st.InProgressTickets)
	assert.EqualValues(t, 1, st.CompletedTickets)
	assert.EqualValues(t, 0, st.OtherTickets)
	assert.EqualValues(t, 2, st.TicketsByMunicipality["m1"])
	assert.EqualValues(t, 3, st.TicketsByCategory["roads"])
}

func TestAdminService_StatsUnknownStatus(t *testing.T) {
	admin, tickets := newAdminFixture(t)
	ctx := context.Background()

	tk := newTicket("T", "m1", "u1")
	require.NoError(t, tickets.Create(ctx, tk))
	_, err := tickets.Update(ctx, tk.ID, TicketUpdate{Status: strPtr("rejected")})
	require.NoError(t, err)

	st, err := admin.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, st.TotalTickets)
	assert.EqualValues(t, 0, st.PendingTickets+st.InProgressTickets+st.CompletedTickets)
	assert.EqualValues(t, 1, st.OtherTickets)
	assert.EqualValues(t, 1, st.TicketsByStatus["rejected"])
}

func TestAdminService_StatsEmpty(t *testing.T) {
	admin, _ := newAdminFixture(t)

	st, err := admin.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, st.TotalTickets)
	assert.Zero(t, st.TotalMunicipalities)
	assert.Zero(t, st.TotalUsers)
	assert.NotNil(t, st.TicketsByStatus)
}

func TestAdminService_Municipalities(t *testing.T) {
	admin, _ := newAdminFixture(t)
	ctx := context.Background()

	m := &model.Municipality{
		Name:     "Springfield",
		Location: model.Location{Lat: 39.8, Lon: -89.6},
		AdminID:  "admin-1",
		Bounds:   datatypes.JSON(`{"type":"Polygon","coordinates":[]}`),
	}
	require.NoError(t, admin.CreateMunicipality(ctx, m))
	assert.NotEmpty(t, m.ID)

	dup := &model.Municipality{Name: "Springfield", AdminID: "admin-2"}
	assert.ErrorIs(t, admin.CreateMunicipality(ctx, dup), errs.ErrMunicipalityExists)

	require.NoError(t, admin.CreateMunicipality(ctx, &model.Municipality{Name: "Shelbyville", AdminID: "admin-2"}))

	items, err := admin.ListMunicipalities(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Springfield", items[0].Name)
	assert.JSONEq(t, `{"type":"Polygon","coordinates":[]}`, string(items[0].Bounds))

	st, err := admin.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, st.TotalMunicipalities)
}

func TestAdminService_AllTickets(t *testing.T) {
	admin, tickets := newAdminFixture(t)
	ctx := context.Background()

	a := newTicket("A", "m1", "u1")
	b := newTicket("B", "m2", "u2")
	require.NoError(t, tickets.Create(ctx, a))
	require.NoError(t, tickets.Create(ctx, b))

	all, err := admin.AllTickets(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, b.ID, all[0].ID)
}
