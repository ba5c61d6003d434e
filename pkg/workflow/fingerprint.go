package workflow

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// Keys stripped from node data before hashing: identity and presentation
// only, never behavior.
var ignoredDataKeys = map[string]struct{}{
	"label":       {},
	"name":        {},
	"description": {},
	"x":           {},
	"y":           {},
	"position":    {},
	"id":          {},
}

// unknownType is the sentinel for edge endpoints whose node id does not
// resolve. Fingerprinting never fails on malformed references; that is the
// validator's job.
const unknownType = "unknown"

// Field order of the canonical structs is part of the hash contract: a
// reimplementation emitting keys in any other order produces incompatible
// fingerprints.
type canonicalNode struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type canonicalEdge struct {
	SourceType   string  `json:"sourceType"`
	TargetType   string  `json:"targetType"`
	SourceHandle *string `json:"sourceHandle"`
	TargetHandle *string `json:"targetHandle"`
}

type canonicalDocument struct {
	Nodes []canonicalNode `json:"nodes"`
	Edges []canonicalEdge `json:"edges"`
}

// Fingerprint computes the content-addressable digest of a workflow
// document: a lowercase SHA-256 hex string over the canonical form of the
// graph. Two uploads of semantically identical workflows collapse to the
// same value regardless of node ids, visual layout, labels, or the order
// nodes and edges were serialized in.
//
// Fingerprint assumes its input already passed Validate; behavior on
// invalid documents is unspecified but never panics.
func Fingerprint(doc any) string {
	document, _ := doc.(map[string]any)
	rawNodes, _ := document["nodes"].([]any)
	rawEdges, _ := document["edges"].([]any)

	typeByID := make(map[string]string, len(rawNodes))
	nodes := make([]canonicalNode, 0, len(rawNodes))

	for _, rawNode := range rawNodes {
		node, _ := rawNode.(map[string]any)
		moduleType := resolveModuleType(node)

		if id, ok := node["id"].(string); ok {
			typeByID[id] = moduleType
		}

		nodes = append(nodes, canonicalNode{
			Type: moduleType,
			Data: marshalData(normalizeData(nodeConfig(node))),
		})
	}

	// Total order over reduced node records: type first (empty sorts
	// before everything), serialized data as the tie-break. This is what
	// makes the hash invariant under node reordering.
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Type != nodes[j].Type {
			return nodes[i].Type < nodes[j].Type
		}

		return string(nodes[i].Data) < string(nodes[j].Data)
	})

	edges := make([]canonicalEdge, 0, len(rawEdges))
	serializedEdges := make([]string, 0, len(rawEdges))

	for _, rawEdge := range rawEdges {
		edge, _ := rawEdge.(map[string]any)

		record := canonicalEdge{
			SourceType:   endpointType(typeByID, edge, "source"),
			TargetType:   endpointType(typeByID, edge, "target"),
			SourceHandle: handle(edge, "sourceHandle"),
			TargetHandle: handle(edge, "targetHandle"),
		}

		serialized, _ := json.Marshal(record)
		edges = append(edges, record)
		serializedEdges = append(serializedEdges, string(serialized))
	}

	sort.Sort(&edgesBySerializedForm{edges: edges, serialized: serializedEdges})

	canonical, _ := json.Marshal(canonicalDocument{Nodes: nodes, Edges: edges})
	digest := sha256.Sum256(canonical)

	return hex.EncodeToString(digest[:])
}

// normalizeData strips ignored keys and drops null / empty-string values.
// A node without a data object normalizes to an empty mapping.
func normalizeData(config map[string]any) map[string]any {
	normalized := make(map[string]any, len(config))

	for key, value := range config {
		if _, ignored := ignoredDataKeys[key]; ignored {
			continue
		}

		if value == nil {
			continue
		}

		if text, ok := value.(string); ok && text == "" {
			continue
		}

		normalized[key] = value
	}

	return normalized
}

func marshalData(data map[string]any) json.RawMessage {
	// encoding/json emits map keys in sorted order, which gives nested
	// data a deterministic serialization for free.
	serialized, err := json.Marshal(data)
	if err != nil {
		return json.RawMessage("{}")
	}

	return serialized
}

func endpointType(typeByID map[string]string, edge map[string]any, key string) string {
	id, ok := edge[key].(string)
	if !ok {
		return unknownType
	}

	moduleType, exists := typeByID[id]
	if !exists {
		return unknownType
	}

	return moduleType
}

func handle(edge map[string]any, key string) *string {
	if value, ok := edge[key].(string); ok {
		return &value
	}

	return nil
}

// edgesBySerializedForm sorts edge records and their serialized forms in
// lockstep, ordering lexicographically by the serialized form.
type edgesBySerializedForm struct {
	edges      []canonicalEdge
	serialized []string
}

func (s *edgesBySerializedForm) Len() int { return len(s.edges) }

func (s *edgesBySerializedForm) Less(i, j int) bool {
	return s.serialized[i] < s.serialized[j]
}

func (s *edgesBySerializedForm) Swap(i, j int) {
	s.edges[i], s.edges[j] = s.edges[j], s.edges[i]
	s.serialized[i], s.serialized[j] = s.serialized[j], s.serialized[i]
}
