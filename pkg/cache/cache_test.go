package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddRemove(t *testing.T) {
	manager := NewManager()

	assert.False(t, manager.Contains(1))

	manager.AddDevice(1)
	assert.True(t, manager.Contains(1))

	manager.RemoveDevice(1)
	assert.False(t, manager.Contains(1))
}

func TestOverlappingHoldsKeepDeviceHot(t *testing.T) {
	manager := NewManager()

	// A rebind adds the new hold before the old one is released.
	manager.AddDevice(1)
	manager.AddDevice(1)
	manager.RemoveDevice(1)

	assert.True(t, manager.Contains(1))

	manager.RemoveDevice(1)
	assert.False(t, manager.Contains(1))
}

func TestRemoveAbsentDeviceIsNoop(t *testing.T) {
	manager := NewManager()

	manager.RemoveDevice(5)
	assert.False(t, manager.Contains(5))

	manager.AddDevice(5)
	assert.True(t, manager.Contains(5))
}

func TestDevicesSnapshot(t *testing.T) {
	manager := NewManager()

	manager.AddDevice(1)
	manager.AddDevice(2)
	manager.AddDevice(2)

	assert.ElementsMatch(t, []int64{1, 2}, manager.Devices())
}
