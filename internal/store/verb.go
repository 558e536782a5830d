package store

// Verb names a persistence operation.
type Verb string

// Write verbs.
const (
	VerbCreate     Verb = "create"
	VerbCreateMany Verb = "createMany"
	VerbUpdate     Verb = "update"
	VerbUpdateMany Verb = "updateMany"
	VerbUpsert     Verb = "upsert"
	VerbDelete     Verb = "delete"
	VerbDeleteMany Verb = "deleteMany"
)

// Read verbs.
const (
	VerbFindUnique Verb = "findUnique"
	VerbFindFirst  Verb = "findFirst"
	VerbFindMany   Verb = "findMany"
	VerbCount      Verb = "count"
)

var writeVerbs = map[Verb]bool{
	VerbCreate:     false,
	VerbCreateMany: true,
	VerbUpdate:     false,
	VerbUpdateMany: true,
	VerbUpsert:     false,
	VerbDelete:     false,
	VerbDeleteMany: true,
}

var readVerbs = map[Verb]struct{}{
	VerbFindUnique: {},
	VerbFindFirst:  {},
	VerbFindMany:   {},
	VerbCount:      {},
}

// IsWrite reports whether v mutates data. Anything else, including unknown
// verbs, classifies as a read.
func (v Verb) IsWrite() bool {
	_, ok := writeVerbs[v]
	return ok
}

// IsBulk reports whether v is a write affecting an unbounded set of records.
func (v Verb) IsBulk() bool {
	return writeVerbs[v]
}

// Known reports whether v belongs to the verb set.
func (v Verb) Known() bool {
	if v.IsWrite() {
		return true
	}
	_, ok := readVerbs[v]
	return ok
}

// RequiresID reports whether v addresses exactly one record by id.
func (v Verb) RequiresID() bool {
	switch v {
	case VerbUpdate, VerbUpsert, VerbDelete, VerbFindUnique:
		return true
	}
	return false
}
