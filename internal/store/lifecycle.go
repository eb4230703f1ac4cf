package store

// Op identifies one asynchronous operation against the upstream platform.
// Every operation moves through a begin/resolve/fail lifecycle tracked on
// the store.
type Op int

// Operations recognized by the lifecycle reducer.
const (
	OpFetchList Op = iota
	OpFetchOne
	OpCreate
	OpUpdate
	OpReorder
	OpReparent
	OpDelete
	OpBulkDelete
	OpBulkUpdate
)

var opNames = map[Op]string{
	OpFetchList:  "fetch_list",
	OpFetchOne:   "fetch_one",
	OpCreate:     "create",
	OpUpdate:     "update",
	OpReorder:    "reorder",
	OpReparent:   "reparent",
	OpDelete:     "delete",
	OpBulkDelete: "bulk_delete",
	OpBulkUpdate: "bulk_update",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return "unknown"
}

// Family groups operations that share a loading flag and an error slot.
// Reorder and reparent ride the update family; bulk operations get their
// own so a long bulk job does not mask a single-row update.
type Family int

// Lifecycle flag families.
const (
	FamilyFetch Family = iota
	FamilyCreate
	FamilyUpdate
	FamilyDelete
	FamilyBulk
)

var familyNames = map[Family]string{
	FamilyFetch:  "fetch",
	FamilyCreate: "create",
	FamilyUpdate: "update",
	FamilyDelete: "delete",
	FamilyBulk:   "bulk",
}

func (f Family) String() string {
	if name, ok := familyNames[f]; ok {
		return name
	}
	return "unknown"
}

// FamilyOf maps an operation to its lifecycle family.
func FamilyOf(op Op) Family {
	switch op {
	case OpFetchList, OpFetchOne:
		return FamilyFetch
	case OpCreate:
		return FamilyCreate
	case OpUpdate, OpReorder, OpReparent:
		return FamilyUpdate
	case OpDelete:
		return FamilyDelete
	case OpBulkDelete, OpBulkUpdate:
		return FamilyBulk
	default:
		return FamilyFetch
	}
}

// Flags is the per-family loading state. Each family toggles independently:
// a pending create never hides a pending fetch.
type Flags struct {
	Fetch  bool `json:"fetch"`
	Create bool `json:"create"`
	Update bool `json:"update"`
	Delete bool `json:"delete"`
	Bulk   bool `json:"bulk"`
}

// Any reports whether any operation is in flight.
func (f Flags) Any() bool {
	return f.Fetch || f.Create || f.Update || f.Delete || f.Bulk
}

func (f Flags) get(fam Family) bool {
	switch fam {
	case FamilyFetch:
		return f.Fetch
	case FamilyCreate:
		return f.Create
	case FamilyUpdate:
		return f.Update
	case FamilyDelete:
		return f.Delete
	case FamilyBulk:
		return f.Bulk
	}
	return false
}

func (f *Flags) set(fam Family, v bool) {
	switch fam {
	case FamilyFetch:
		f.Fetch = v
	case FamilyCreate:
		f.Create = v
	case FamilyUpdate:
		f.Update = v
	case FamilyDelete:
		f.Delete = v
	case FamilyBulk:
		f.Bulk = v
	}
}

// Errors holds the last failure per family. Beginning a new operation in a
// family clears that family's slot, so a stale create error never lingers
// into the next create attempt while an unrelated fetch error stays visible.
type Errors struct {
	Fetch  error
	Create error
	Update error
	Delete error
	Bulk   error
}

// Any returns the first non-nil family error, fetch first.
func (e Errors) Any() error {
	for _, err := range []error{e.Fetch, e.Create, e.Update, e.Delete, e.Bulk} {
		if err != nil {
			return err
		}
	}
	return nil
}

func (e Errors) get(fam Family) error {
	switch fam {
	case FamilyFetch:
		return e.Fetch
	case FamilyCreate:
		return e.Create
	case FamilyUpdate:
		return e.Update
	case FamilyDelete:
		return e.Delete
	case FamilyBulk:
		return e.Bulk
	}
	return nil
}

func (e *Errors) set(fam Family, err error) {
	switch fam {
	case FamilyFetch:
		e.Fetch = err
	case FamilyCreate:
		e.Create = err
	case FamilyUpdate:
		e.Update = err
	case FamilyDelete:
		e.Delete = err
	case FamilyBulk:
		e.Bulk = err
	}
}
