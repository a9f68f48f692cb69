// Package model holds the wire-level graph data types shared between the
// layout engine and the hosting application. A Graph snapshot is produced
// externally on every filter change and is immutable once received; the
// layout package derives its own working copy from it.
package model

import "strings"

type NodeType string

const (
	NodeTypeUnit  NodeType = "unit"
	NodeTypeItem  NodeType = "item"
	NodeTypeTrait NodeType = "trait"
)

// id prefixes, e.g. "U:Ahri", "I:BlueBuff", "T:Sorcerer"
const (
	IDPrefixUnit  = "U:"
	IDPrefixItem  = "I:"
	IDPrefixTrait = "T:"
)

// NodeTypeFromID derives the node type from a type-prefixed id. Unknown
// prefixes yield the empty type.
func NodeTypeFromID(id string) NodeType {
	switch {
	case strings.HasPrefix(id, IDPrefixUnit):
		return NodeTypeUnit
	case strings.HasPrefix(id, IDPrefixItem):
		return NodeTypeItem
	case strings.HasPrefix(id, IDPrefixTrait):
		return NodeTypeTrait
	}
	return NodeType("")
}

// Key returns the id with its type prefix stripped, used for icon lookup.
func Key(id string) string {
	if i := strings.Index(id, ":"); i >= 0 {
		return id[i+1:]
	}
	return id
}

type EdgeType string

const (
	EdgeTypeEquipped EdgeType = "equipped"
	EdgeTypeCooccur  EdgeType = "cooccur"
)

type Node struct {
	ID       string   `json:"id"`
	Type     NodeType `json:"type"`
	Label    string   `json:"label"`
	IsCenter bool     `json:"isCenter"`
}

// Edge describes a statistical co-occurrence relationship. Delta is the
// signed change in average placement; negative is an improvement. Delta is
// nil for relationships without enough samples to carry a measurement.
type Edge struct {
	From    string   `json:"from"`
	To      string   `json:"to"`
	Type    EdgeType `json:"type"`
	Token   string   `json:"token"`
	Label   string   `json:"label"`
	Delta   *float64 `json:"delta,omitempty"`
	AvgWith float64  `json:"avg_with"`
	AvgBase float64  `json:"avg_base"`
	NWith   int      `json:"n_with"`
	NBase   int      `json:"n_base"`
}

type Graph struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// TypeFilter is the set of node types currently visible. An empty filter
// means all types pass. Center nodes bypass the filter entirely.
type TypeFilter map[NodeType]bool

func (f TypeFilter) Allows(t NodeType) bool {
	if len(f) == 0 {
		return true
	}
	return f[t]
}

// AllTypes returns a filter passing every node type.
func AllTypes() TypeFilter {
	return TypeFilter{NodeTypeUnit: true, NodeTypeItem: true, NodeTypeTrait: true}
}

const (
	TooltipKindNode = "node"
	TooltipKindEdge = "edge"
)

// Tooltip is the discriminated payload of a showTooltip event: Kind selects
// which of the remaining fields are meaningful.
type Tooltip struct {
	Kind     string   `json:"kind"`
	Label    string   `json:"label"`
	NodeType NodeType `json:"nodeType,omitempty"`
	IsCenter bool     `json:"isCenter,omitempty"`
	Delta    *float64 `json:"delta,omitempty"`
	AvgWith  float64  `json:"avg_with,omitempty"`
	AvgBase  float64  `json:"avg_base,omitempty"`
	NWith    int      `json:"n_with,omitempty"`
	NBase    int      `json:"n_base,omitempty"`
}

func NodeTooltip(n *Node) Tooltip {
	return Tooltip{Kind: TooltipKindNode, Label: n.Label, NodeType: n.Type, IsCenter: n.IsCenter}
}

func EdgeTooltip(e *Edge) Tooltip {
	return Tooltip{
		Kind:    TooltipKindEdge,
		Label:   e.Label,
		Delta:   e.Delta,
		AvgWith: e.AvgWith,
		AvgBase: e.AvgBase,
		NWith:   e.NWith,
		NBase:   e.NBase,
	}
}
