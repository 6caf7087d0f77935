package heap

// A scope table is an open-addressing hash table with linear probing that
// maps symbol names to values. Keys are compared by full name, not by handle.
//
// Slot states:
//   - empty: key and value both Empty
//   - tombstone: key Empty, value non-Empty
//   - live: key is a symbol
//
// used counts live slots plus tombstones and drives growth, so a probe
// sequence always reaches an empty slot.

const maxLoad = 0.75

type entry struct {
	key   Exp
	name  string
	value Exp
}

func (e *entry) isLive() bool {
	return e.key.Kind != KindEmpty
}

type scopeTable struct {
	entries []entry
	used    int
	live    int
}

// hashName is 32-bit FNV-1a.
func hashName(s string) uint32 {
	hash := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		hash ^= uint32(s[i])
		hash *= 16777619
	}
	return hash
}

// findEntry returns the slot holding name, or the slot an insert of name
// should use: the first tombstone on the probe path if any, else the empty
// slot that ended the probe. entries must be non-empty.
func findEntry(entries []entry, name string) int {
	mask := uint32(len(entries) - 1)
	i := hashName(name) & mask
	tombstone := -1
	for {
		e := &entries[i]
		if e.key.Kind == KindEmpty {
			if e.value.Kind == KindEmpty {
				if tombstone >= 0 {
					return tombstone
				}
				return int(i)
			}
			if tombstone < 0 {
				tombstone = int(i)
			}
		} else if e.name == name {
			return int(i)
		}
		i = (i + 1) & mask
	}
}

func (t *scopeTable) needsGrow() bool {
	return float64(t.used+1) > float64(len(t.entries))*maxLoad
}

// rehash moves every live entry into a fresh array of newCap slots,
// dropping tombstones.
func (t *scopeTable) rehash(newCap int) {
	entries := make([]entry, newCap)
	t.used, t.live = 0, 0
	for i := range t.entries {
		e := &t.entries[i]
		if !e.isLive() {
			continue
		}
		entries[findEntry(entries, e.name)] = *e
		t.used++
		t.live++
	}
	t.entries = entries
}

// install stores value under key. Capacity must already be sufficient.
func (t *scopeTable) install(key Exp, name string, value Exp) bool {
	e := &t.entries[findEntry(t.entries, name)]
	isNew := !e.isLive()
	if isNew {
		if e.value.Kind == KindEmpty {
			t.used++
		}
		t.live++
	}
	*e = entry{key: key, name: name, value: value}
	return isNew
}

func (t *scopeTable) lookup(name string) (Exp, bool) {
	if len(t.entries) == 0 {
		return Empty, false
	}
	e := &t.entries[findEntry(t.entries, name)]
	if !e.isLive() {
		return Empty, false
	}
	return e.value, true
}

func (t *scopeTable) delete(name string) bool {
	if len(t.entries) == 0 {
		return false
	}
	e := &t.entries[findEntry(t.entries, name)]
	if !e.isLive() {
		return false
	}
	*e = entry{value: Void}
	t.live--
	return true
}

func (h *Heap) newTable() Handle {
	return h.newObject(objTable, 0)
}

func (h *Heap) table(hd Handle) *scopeTable {
	o := h.deref(hd)
	if o.kind != objTable {
		panic("heap: " + o.kind.String() + " handle used as scope table")
	}
	return &o.table
}

// tableInstall stores value under the symbol key, growing the table first if
// the insert would exceed the load factor. The table must be reachable from
// a root; key and value are pinned while the growth is charged.
func (h *Heap) tableInstall(hd Handle, key, value Exp) bool {
	name := h.SymbolName(key)
	t := h.table(hd)
	if t.needsGrow() {
		oldCap := len(t.entries)
		newCap := growCap(oldCap)
		g := h.Save(key, value)
		h.reserve((newCap - oldCap) * entrySize)
		g.Release()

		t = h.table(hd)
		t.rehash(newCap)
	}
	return t.install(key, name, value)
}
