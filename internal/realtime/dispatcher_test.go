package realtime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erancha/RENTracker-sub000/internal/storage"
	"github.com/erancha/RENTracker-sub000/pkg/json"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, storage.Store) {
	t.Helper()
	store := storage.NewMemory()
	return NewDispatcher(store, zap.NewNop()), store
}

func TestDispatcherRejectsUnsupportedCommands(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	cases := []struct {
		name string
		cmd  Command
	}{
		{"unknown resource", Command{Type: ActionCreate, Params: CommandParams{Resource: "lease"}}},
		{"unknown action", Command{Type: Action("archive"), Params: CommandParams{Resource: "apartment"}}},
		{"activity update", Command{Type: ActionUpdate, Params: CommandParams{Resource: "activity"}}},
		{"empty resource", Command{Type: ActionRead, Params: CommandParams{}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			frame, targets, err := d.Execute(ctx, tc.cmd, "landlord-1")
			require.ErrorIs(t, err, ErrUnsupportedCommand)
			assert.Nil(t, frame)
			assert.Nil(t, targets)
		})
	}
}

func TestDispatcherCreateApartment(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	data, err := json.Marshal(map[string]interface{}{
		"address":   "12 Rothschild Blvd",
		"rooms":     3,
		"rent":      5200,
		"tenantIds": []string{"tenant-1"},
	})
	require.NoError(t, err)

	frame, targets, err := d.Execute(ctx, Command{
		Type:   ActionCreate,
		Params: CommandParams{Resource: "apartment", Data: data},
	}, "landlord-1")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"landlord-1", "tenant-1"}, targets)

	var decoded map[string]map[string]storage.Apartment
	require.NoError(t, json.Unmarshal(frame, &decoded))
	apartment, ok := decoded["dataCreated"]["apartment"]
	require.True(t, ok, "frame must be keyed dataCreated.apartment: %s", frame)
	assert.NotEmpty(t, apartment.ID)
	assert.Equal(t, "landlord-1", apartment.LandlordID)
	assert.Equal(t, "12 Rothschild Blvd", apartment.Address)
}

func TestDispatcherReadUsesDataReadKey(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	frame, targets, err := d.Execute(ctx, Command{
		Type:   ActionRead,
		Params: CommandParams{Resource: "apartment"},
	}, "landlord-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"landlord-1"}, targets)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(frame, &decoded))
	assert.Contains(t, decoded, "dataRead")
}

func TestDispatcherWrapsStorageFailures(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	frame, targets, err := d.Execute(ctx, Command{
		Type:   ActionDelete,
		Params: CommandParams{Resource: "apartment", ID: "no-such-id"},
	}, "landlord-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
	assert.Nil(t, frame)
	assert.Nil(t, targets)
}
