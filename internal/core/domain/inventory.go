package domain

import "sync"

// CollectionInventory records every object id observed for one site
// collection, keyed the way the source hierarchy nests: item ids under
// their list, lists under their site. It is the deletion candidate set
// for the next reconciliation pass.
type CollectionInventory struct {
	mu sync.Mutex

	// Sites maps site id to its server-relative URL.
	Sites map[string]string `json:"sites"`

	// Lists maps site URL to list id to list title.
	Lists map[string]map[string]string `json:"lists"`

	// ListItems maps site URL to list id to item ids.
	ListItems map[string]map[string][]string `json:"list_items"`

	// DriveItems maps site URL to library id to file ids.
	DriveItems map[string]map[string][]string `json:"drive_items"`
}

// NewCollectionInventory returns an empty, ready-to-use inventory.
func NewCollectionInventory() *CollectionInventory {
	return &CollectionInventory{
		Sites:      make(map[string]string),
		Lists:      make(map[string]map[string]string),
		ListItems:  make(map[string]map[string][]string),
		DriveItems: make(map[string]map[string][]string),
	}
}

// AddSite records a site id under its server-relative URL.
func (c *CollectionInventory) AddSite(id, serverRelativeURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Sites == nil {
		c.Sites = make(map[string]string)
	}
	c.Sites[id] = serverRelativeURL
}

// AddList records a list id and title under its parent site.
func (c *CollectionInventory) AddList(site, id, title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Lists == nil {
		c.Lists = make(map[string]map[string]string)
	}
	if c.Lists[site] == nil {
		c.Lists[site] = make(map[string]string)
	}
	c.Lists[site][id] = title
}

// AddItem records an item or drive-item id under its parent list. Ids
// already present are not duplicated.
func (c *CollectionInventory) AddItem(t ObjectType, site, list, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := c.itemsFor(t)
	if items == nil {
		return
	}
	if items[site] == nil {
		items[site] = make(map[string][]string)
	}
	for _, existing := range items[site][list] {
		if existing == id {
			return
		}
	}
	items[site][list] = append(items[site][list], id)
}

// itemsFor selects the item map for t. Caller must hold the lock.
func (c *CollectionInventory) itemsFor(t ObjectType) map[string]map[string][]string {
	switch t {
	case ObjectListItems:
		if c.ListItems == nil {
			c.ListItems = make(map[string]map[string][]string)
		}
		return c.ListItems
	case ObjectDriveItems:
		if c.DriveItems == nil {
			c.DriveItems = make(map[string]map[string][]string)
		}
		return c.DriveItems
	default:
		return nil
	}
}

// Items returns the item map for t for read-side traversal.
func (c *CollectionInventory) Items(t ObjectType) map[string]map[string][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.itemsFor(t)
}

// SiteEntries returns a copy of the site id to URL map.
func (c *CollectionInventory) SiteEntries() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.Sites))
	for id, url := range c.Sites {
		out[id] = url
	}
	return out
}

// ListEntries returns a copy of the site URL to list id to title map.
func (c *CollectionInventory) ListEntries() map[string]map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]map[string]string, len(c.Lists))
	for site, lists := range c.Lists {
		out[site] = make(map[string]string, len(lists))
		for id, title := range lists {
			out[site][id] = title
		}
	}
	return out
}

// ItemEntries returns a copy of the item id map for t.
func (c *CollectionInventory) ItemEntries(t ObjectType) map[string]map[string][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := c.itemsFor(t)
	out := make(map[string]map[string][]string, len(items))
	for site, lists := range items {
		out[site] = cloneItemLists(lists)
	}
	return out
}

// Merge folds the other inventory into this one: site entries overwrite,
// lists merge per site, item ids union per list.
func (c *CollectionInventory) Merge(other *CollectionInventory) {
	if other == nil {
		return
	}
	for id, url := range other.Sites {
		c.AddSite(id, url)
	}
	for site, lists := range other.Lists {
		for id, title := range lists {
			c.AddList(site, id, title)
		}
	}
	for site, lists := range other.ListItems {
		for list, ids := range lists {
			for _, id := range ids {
				c.AddItem(ObjectListItems, site, list, id)
			}
		}
	}
	for site, lists := range other.DriveItems {
		for list, ids := range lists {
			for _, id := range ids {
				c.AddItem(ObjectDriveItems, site, list, id)
			}
		}
	}
}

// Clone returns a deep copy, safe to mutate independently.
func (c *CollectionInventory) Clone() *CollectionInventory {
	c.mu.Lock()
	defer c.mu.Unlock()

	clone := NewCollectionInventory()
	for id, url := range c.Sites {
		clone.Sites[id] = url
	}
	for site, lists := range c.Lists {
		clone.Lists[site] = make(map[string]string, len(lists))
		for id, title := range lists {
			clone.Lists[site][id] = title
		}
	}
	for site, lists := range c.ListItems {
		clone.ListItems[site] = cloneItemLists(lists)
	}
	for site, lists := range c.DriveItems {
		clone.DriveItems[site] = cloneItemLists(lists)
	}
	return clone
}

func cloneItemLists(lists map[string][]string) map[string][]string {
	out := make(map[string][]string, len(lists))
	for list, ids := range lists {
		out[list] = append([]string(nil), ids...)
	}
	return out
}

// RemoveSite drops a site id from the inventory.
func (c *CollectionInventory) RemoveSite(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.Sites, id)
}

// RemoveList drops a list id under a site.
func (c *CollectionInventory) RemoveList(site, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Lists[site] != nil {
		delete(c.Lists[site], id)
	}
}

// RemoveItems drops item ids under a list.
func (c *CollectionInventory) RemoveItems(t ObjectType, site, list string, ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := c.itemsFor(t)
	if items == nil || items[site] == nil {
		return
	}
	kept := items[site][list][:0]
	for _, id := range items[site][list] {
		if !contains(ids, id) {
			kept = append(kept, id)
		}
	}
	if len(kept) == 0 {
		delete(items[site], list)
	} else {
		items[site][list] = kept
	}
}

// Prune removes parent keys that no longer hold any ids, so the
// persisted inventory does not accumulate stale empty containers.
func (c *CollectionInventory) Prune() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for site, lists := range c.Lists {
		if len(lists) == 0 {
			delete(c.Lists, site)
		}
	}
	for _, items := range []map[string]map[string][]string{c.ListItems, c.DriveItems} {
		for site, lists := range items {
			for list, ids := range lists {
				if len(ids) == 0 {
					delete(lists, list)
				}
			}
			if len(lists) == 0 {
				delete(items, site)
			}
		}
	}
}

// IsEmpty reports whether the inventory holds no ids at all.
func (c *CollectionInventory) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Sites) > 0 {
		return false
	}
	for _, lists := range c.Lists {
		if len(lists) > 0 {
			return false
		}
	}
	for _, items := range []map[string]map[string][]string{c.ListItems, c.DriveItems} {
		for _, lists := range items {
			for _, ids := range lists {
				if len(ids) > 0 {
					return false
				}
			}
		}
	}
	return true
}

// Inventory is the durable snapshot of every object id seen on previous
// runs, keyed by site collection.
type Inventory struct {
	mu          sync.Mutex
	Collections map[string]*CollectionInventory `json:"collections"`
}

// NewInventory returns an empty inventory.
func NewInventory() *Inventory {
	return &Inventory{Collections: make(map[string]*CollectionInventory)}
}

// Collection returns the inventory for a site collection, creating it
// when absent.
func (inv *Inventory) Collection(name string) *CollectionInventory {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.Collections == nil {
		inv.Collections = make(map[string]*CollectionInventory)
	}
	if inv.Collections[name] == nil {
		inv.Collections[name] = NewCollectionInventory()
	}
	return inv.Collections[name]
}

// Has reports whether the collection has a recorded inventory.
func (inv *Inventory) Has(name string) bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.Collections[name] != nil
}

// Names returns the recorded collection names.
func (inv *Inventory) Names() []string {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	names := make([]string, 0, len(inv.Collections))
	for name := range inv.Collections {
		names = append(names, name)
	}
	return names
}

// Clone returns a deep copy of the whole inventory.
func (inv *Inventory) Clone() *Inventory {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	clone := NewInventory()
	for name, collection := range inv.Collections {
		clone.Collections[name] = collection.Clone()
	}
	return clone
}
