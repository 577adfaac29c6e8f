package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TalissonJunior/traccar/pkg/models"
)

func TestAddDeviceMintsIDs(t *testing.T) {
	memory := NewMemory()

	first := memory.AddDevice(&models.Device{UniqueID: "imei-1"})
	second := memory.AddDevice(&models.Device{UniqueID: "imei-2"})

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)

	// Explicit ids advance the sequence.
	memory.AddDevice(&models.Device{ID: 10, UniqueID: "imei-10"})
	third := memory.AddDevice(&models.Device{UniqueID: "imei-11"})
	assert.Equal(t, int64(11), third.ID)
}

func TestIdentityResolution(t *testing.T) {
	memory := NewMemory()
	ctx := context.Background()

	device := memory.AddDevice(&models.Device{UniqueID: "imei-1", Name: "truck"})

	byUnique, err := memory.ByUniqueID(ctx, "imei-1")
	require.NoError(t, err)
	assert.Same(t, device, byUnique)

	byID, err := memory.ByID(ctx, device.ID)
	require.NoError(t, err)
	assert.Same(t, device, byID)

	missing, err := memory.ByUniqueID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAddUnknownDevice(t *testing.T) {
	memory := NewMemory()
	ctx := context.Background()

	device, err := memory.AddUnknownDevice(ctx, "fresh-imei")
	require.NoError(t, err)
	assert.Equal(t, "fresh-imei", device.UniqueID)
	assert.Equal(t, "fresh-imei", device.Name)
	assert.NotZero(t, device.ID)

	resolved, err := memory.ByUniqueID(ctx, "fresh-imei")
	require.NoError(t, err)
	assert.Same(t, device, resolved)
}

func TestUpdateDeviceStatusSharesRecord(t *testing.T) {
	memory := NewMemory()
	ctx := context.Background()

	device := memory.AddDevice(&models.Device{UniqueID: "imei-1"})
	device.Status = models.StatusOnline

	require.NoError(t, memory.UpdateDeviceStatus(ctx, device))

	stored, err := memory.ByID(ctx, device.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOnline, stored.Status)
}

func TestDeviceStateLazyCreate(t *testing.T) {
	memory := NewMemory()

	state := memory.GetDeviceState(42)
	require.NotNil(t, state)
	assert.Same(t, state, memory.GetDeviceState(42))

	motion := true
	replacement := &models.DeviceState{MotionState: &motion}
	memory.SetDeviceState(42, replacement)
	assert.Same(t, replacement, memory.GetDeviceState(42))
}

func TestPermissions(t *testing.T) {
	memory := NewMemory()

	assert.Empty(t, memory.GetDeviceUsers(42))
	assert.False(t, memory.CheckDevice(7, 42))

	memory.LinkDevice(7, 42)
	memory.LinkDevice(8, 42)
	memory.LinkDevice(7, 42)

	assert.ElementsMatch(t, []int64{7, 8}, memory.GetDeviceUsers(42))
	assert.True(t, memory.CheckDevice(7, 42))
	assert.False(t, memory.CheckDevice(9, 42))
}

func TestAttributeLookups(t *testing.T) {
	memory := NewMemory()

	device := memory.AddDevice(&models.Device{
		UniqueID: "imei-1",
		Attributes: map[string]interface{}{
			models.AttributeSpeedLimit: 90.0,
			"motion":                   true,
			"label":                    "north",
		},
	})

	assert.Equal(t, 90.0, memory.LookupAttributeDouble(device.ID, models.AttributeSpeedLimit, 0))
	assert.Equal(t, 50.0, memory.LookupAttributeDouble(device.ID, "absent", 50))
	assert.Equal(t, 50.0, memory.LookupAttributeDouble(99, models.AttributeSpeedLimit, 50))

	assert.True(t, memory.LookupAttributeBoolean(device.ID, "motion", false))
	assert.False(t, memory.LookupAttributeBoolean(device.ID, "absent", false))

	// A wrong-typed attribute falls back to the default.
	assert.Equal(t, 10.0, memory.LookupAttributeDouble(device.ID, "label", 10))
}

func TestGroupStorage(t *testing.T) {
	memory := NewMemory()
	ctx := context.Background()

	require.NoError(t, memory.AddGroup(ctx, &models.Group{ID: 1, Name: "fleet"}))
	require.NoError(t, memory.AddGroup(ctx, &models.Group{ID: 2, Name: "north", GroupID: 1}))

	groups, err := memory.GetGroups(ctx)
	require.NoError(t, err)
	assert.Len(t, groups, 2)

	require.NoError(t, memory.UpdateGroup(ctx, &models.Group{ID: 2, Name: "south", GroupID: 1}))

	groups, err = memory.GetGroups(ctx)
	require.NoError(t, err)

	names := map[int64]string{}
	for _, group := range groups {
		names[group.ID] = group.Name
	}

	assert.Equal(t, "south", names[2])
}
