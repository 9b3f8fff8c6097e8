package state

// Order is one faction's accepted order-set for a turn. Immutable once
// accepted by the turn queue; the scheduler consumes and discards it.
type Order struct {
	FactionID  string
	Tick       uint64
	Directives []Directive
}

// Directive is a single typed instruction inside an order-set. Weight is a
// permille bias, Amount a fixed-point quantity; which one applies depends
// on the directive type.
type Directive struct {
	Type   string
	Target string
	Weight int64 // permille
	Amount Milli
}

// Directive types understood by the phase ledgers. Each type may require a
// capability flag; the mapping lives in tuning so it can be hot-reloaded.
const (
	DirectiveExtract       = "materials.extract"
	DirectivePrioritize    = "logistics.prioritize"
	DirectiveGenerate      = "power.generate"
	DirectiveStoragePolicy = "power.storage_policy"
	DirectiveResearch      = "knowledge.research"
)

// OrderSet is the closed per-faction order map handed to the scheduler.
// Keys are faction ids; iteration must go through sorted keys.
type OrderSet map[string]*Order

// DirectivesFor returns the directives of the given type submitted by the
// faction, in submission order.
func (s OrderSet) DirectivesFor(factionID, typ string) []Directive {
	o := s[factionID]
	if o == nil {
		return nil
	}
	var out []Directive
	for _, d := range o.Directives {
		if d.Type == typ {
			out = append(out, d)
		}
	}
	return out
}
