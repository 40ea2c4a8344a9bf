package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildInventory() *CollectionInventory {
	inv := NewCollectionInventory()
	inv.AddSite("site-1", "/sites/a")
	inv.AddSite("site-2", "/sites/a/sub")
	inv.AddList("/sites/a", "list-1", "Tasks")
	inv.AddItem(ObjectListItems, "/sites/a", "list-1", "item-1")
	inv.AddItem(ObjectListItems, "/sites/a", "list-1", "item-2")
	inv.AddItem(ObjectDriveItems, "/sites/a", "lib-1", "file-1")
	return inv
}

func TestCollectionInventory_AddItem_Deduplicates(t *testing.T) {
	inv := NewCollectionInventory()
	inv.AddItem(ObjectListItems, "/sites/a", "list-1", "item-1")
	inv.AddItem(ObjectListItems, "/sites/a", "list-1", "item-1")

	assert.Equal(t, []string{"item-1"}, inv.ItemEntries(ObjectListItems)["/sites/a"]["list-1"])
}

func TestCollectionInventory_Merge(t *testing.T) {
	base := buildInventory()

	other := NewCollectionInventory()
	other.AddSite("site-1", "/sites/a-moved")
	other.AddList("/sites/a", "list-2", "Docs")
	other.AddItem(ObjectListItems, "/sites/a", "list-1", "item-2")
	other.AddItem(ObjectListItems, "/sites/a", "list-1", "item-3")

	base.Merge(other)

	assert.Equal(t, "/sites/a-moved", base.SiteEntries()["site-1"])
	assert.Len(t, base.ListEntries()["/sites/a"], 2)
	assert.ElementsMatch(t, []string{"item-1", "item-2", "item-3"},
		base.ItemEntries(ObjectListItems)["/sites/a"]["list-1"])
}

func TestCollectionInventory_Clone_IsIndependent(t *testing.T) {
	inv := buildInventory()
	clone := inv.Clone()

	clone.AddSite("site-3", "/sites/b")
	clone.RemoveItems(ObjectListItems, "/sites/a", "list-1", []string{"item-1"})

	assert.NotContains(t, inv.SiteEntries(), "site-3")
	assert.ElementsMatch(t, []string{"item-1", "item-2"},
		inv.ItemEntries(ObjectListItems)["/sites/a"]["list-1"])
}

func TestCollectionInventory_Prune(t *testing.T) {
	inv := buildInventory()
	inv.RemoveItems(ObjectListItems, "/sites/a", "list-1", []string{"item-1", "item-2"})
	inv.Prune()

	assert.NotContains(t, inv.ItemEntries(ObjectListItems), "/sites/a")
}

func TestCollectionInventory_IsEmpty(t *testing.T) {
	inv := NewCollectionInventory()
	assert.True(t, inv.IsEmpty())

	inv.AddSite("site-1", "/sites/a")
	assert.False(t, inv.IsEmpty())
}

func TestInventory_CollectionCreatesOnDemand(t *testing.T) {
	inv := NewInventory()
	assert.False(t, inv.Has("enterprise"))

	c := inv.Collection("enterprise")
	require.NotNil(t, c)
	assert.True(t, inv.Has("enterprise"))
	assert.Equal(t, []string{"enterprise"}, inv.Names())
}
