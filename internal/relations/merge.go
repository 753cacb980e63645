package relations

import (
	"github.com/peepybureau/bpi/internal/datastore"
)

// Direction is the primary direction of a merged associate. It only drives
// display styling; the labels carry the per-direction detail.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
)

// MergedAssociate is one logical edge between the target and another specimen.
type MergedAssociate struct {
	ID        string    `json:"id"`
	Direction Direction `json:"direction"`
	// Relation is the target's own label for the link.
	Relation string `json:"relation,omitempty"`
	// IncomingRelation is the other specimen's label for its link back.
	IncomingRelation string `json:"incomingRelation,omitempty"`
	// Mutual is set when both specimens list each other.
	Mutual bool `json:"mutual"`
}

// Sibling is another specimen's outgoing link list.
type Sibling struct {
	ID         string
	Associates datastore.Associates
}

// SiblingsOf adapts specimens for MergeAssociates.
func SiblingsOf(specimens []datastore.Specimen) []Sibling {
	out := make([]Sibling, len(specimens))
	for i := range specimens {
		out[i] = Sibling{ID: specimens[i].ID, Associates: specimens[i].KnownAssociates}
	}
	return out
}

// MergeAssociates combines the target's outgoing links with every sibling
// link that points back at it. Outgoing entries come first in stored order,
// followed by incoming-only entries in sibling order. Self references and
// links to specimens missing from siblings are skipped.
func MergeAssociates(targetID string, outgoing datastore.Associates, siblings []Sibling) []MergedAssociate {
	known := make(map[string]*Sibling, len(siblings))
	for i := range siblings {
		known[siblings[i].ID] = &siblings[i]
	}

	merged := make([]MergedAssociate, 0, len(outgoing))
	index := make(map[string]int, len(outgoing))

	for _, a := range outgoing.Normalize() {
		if a.ID == targetID {
			continue
		}
		if _, ok := known[a.ID]; !ok {
			continue
		}
		index[a.ID] = len(merged)
		merged = append(merged, MergedAssociate{ID: a.ID, Direction: DirectionOutgoing, Relation: a.Relation})
	}

	for i := range siblings {
		sib := &siblings[i]
		if sib.ID == targetID {
			continue
		}
		back, ok := sib.Associates.Find(targetID)
		if !ok {
			continue
		}
		if pos, listed := index[sib.ID]; listed {
			merged[pos].IncomingRelation = back.Relation
			merged[pos].Mutual = true
			continue
		}
		index[sib.ID] = len(merged)
		merged = append(merged, MergedAssociate{
			ID:               sib.ID,
			Direction:        DirectionIncoming,
			IncomingRelation: back.Relation,
		})
	}
	return merged
}
