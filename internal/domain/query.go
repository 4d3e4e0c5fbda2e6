package domain

// Field names as stored in the listings collection.
const (
	FieldType         = "type"
	FieldManufacturer = "manufacturer"
	FieldRegularPrice = "regularPrice"
	FieldOffer        = "offer"
	FieldTimestamp    = "timestamp"
	FieldUserRef      = "userRef"
)

type Op string

const (
	OpEq  Op = "=="
	OpGte Op = ">="
	OpLte Op = "<="
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Predicate is a single where clause.
type Predicate struct {
	Field string
	Op    Op
	Value interface{}
}

type OrderBy struct {
	Field     string
	Direction Direction
}

// Cursor is an opaque marker minted by the store for the last record of a page.
// Callers hand it back unchanged; they never build or inspect one.
type Cursor string

// Query is the store-neutral shape of a listing query. Limit 0 means no limit.
type Query struct {
	Predicates []Predicate
	OrderBy    OrderBy
	Limit      int
	StartAfter Cursor
}

// Page is one query result. Next is the cursor of the last item, empty for an empty page.
type Page struct {
	Items []Listing
	Next  Cursor
}
