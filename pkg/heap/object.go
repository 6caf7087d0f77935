package heap

type objKind uint8

const (
	objFree objKind = iota
	objSymbol
	objList
	objProcedure
	objTable
)

var objKindNames = [...]string{
	objFree:      "free",
	objSymbol:    "symbol",
	objList:      "list",
	objProcedure: "procedure",
	objTable:     "scope table",
}

func (k objKind) String() string {
	return objKindNames[k]
}

// Approximate byte costs charged against the collection threshold.
const (
	objectSize = 64
	expSize    = 32
	entrySize  = 80
)

const nilIndex int32 = -1

// object is one arena slot. Slots form an intrusive singly-linked list
// through next, newest first; the list is the only enumeration the sweeper has.
type object struct {
	kind   objKind
	marked bool
	gen    uint32
	next   int32

	name  string     // objSymbol
	items []Exp      // objList
	proc  procedure  // objProcedure
	table scopeTable // objTable
}

type procedure struct {
	params Exp
	body   Exp
	env    *Env
}

// size is the number of bytes charged for the object, matching what was
// reserved when it was allocated and grown.
func (o *object) size() int {
	switch o.kind {
	case objSymbol:
		return objectSize + len(o.name)
	case objList:
		return objectSize + cap(o.items)*expSize
	case objTable:
		return objectSize + len(o.table.entries)*entrySize
	default:
		return objectSize
	}
}
