// Package extract turns raw Katapult job payloads into pole, anchor, and
// connection records.
package extract

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// Kind is the classification of a node.
type Kind int

const (
	KindUnrelated Kind = iota
	KindPole
	KindAnchor
	KindReference
)

func (k Kind) String() string {
	switch k {
	case KindPole:
		return "pole"
	case KindAnchor:
		return "anchor"
	case KindReference:
		return "reference"
	default:
		return "unrelated"
	}
}

// Node type values that drive classification, compared lower-cased.
const (
	nodeTypePole      = "pole"
	nodeTypeAnchor    = "new anchor"
	nodeTypeReference = "reference"
)

// referenceSCID matches derived SCIDs such as "107.A" or "107.A.A.A.A": a
// numeric root followed by one or more single-letter segments.
var referenceSCID = regexp.MustCompile(`^\d+(\.[A-Za-z])+$`)

// IsReferenceSCID reports whether scid denotes a reference point rather than
// a primary asset.
func IsReferenceSCID(scid string) bool {
	return referenceSCID.MatchString(strings.TrimSpace(scid))
}

// Classify returns the kind of a node. Rules, in order:
//   - reference: node type "reference", or a reference-pattern SCID
//   - pole: node type "pole", OR any pole tag, OR "pole" in the node id
//   - anchor: node type "new anchor"
//   - unrelated: everything else, including nodes with no type at all
//
// The node id substring rule is a heuristic; it is kept because some capture
// paths leave poles with neither a type nor a tag.
func Classify(nodeID string, node gjson.Result) Kind {
	attrs := node.Get("attributes")
	nodeType := strings.ToLower(NodeType.String(attrs, ""))

	if nodeType == nodeTypeReference {
		return KindReference
	}
	if IsReferenceSCID(SCID.String(attrs, "")) {
		return KindReference
	}

	if nodeType == nodeTypePole ||
		PoleTag.Present(attrs) ||
		strings.Contains(strings.ToLower(nodeID), "pole") {
		return KindPole
	}
	if nodeType == nodeTypeAnchor {
		return KindAnchor
	}
	return KindUnrelated
}
