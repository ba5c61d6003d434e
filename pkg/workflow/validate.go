// Package workflow implements the hub's core document processing: structural
// validation of uploaded workflow graphs against the module-type catalog,
// and content-addressable fingerprinting for deduplication.
//
// Both operations are pure functions over a decoded JSON value. They hold no
// state and are safe to call concurrently.
package workflow

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/webrpa/hub/pkg/catalog"
)

// Input ceilings. Enforced before any proportional-to-input work so a single
// call is always bounded.
const (
	MaxNodes         = 500
	MaxNodeDataBytes = 50_000
	MaxDocumentBytes = 500_000
)

// maxReportedTypes caps how many unknown module types a diagnostic names.
const maxReportedTypes = 3

// Result is the validation verdict for one document. Diagnostics are the
// product's user-facing strings and are returned, never raised; a caller
// fixing one reported violation may immediately hit the next.
type Result struct {
	Valid     bool   `json:"valid"`
	NodeCount int    `json:"nodeCount,omitempty"`
	Error     string `json:"error,omitempty"`
}

func invalid(message string) Result {
	return Result{Valid: false, Error: message}
}

// Validate decides whether doc is a well-formed, in-schema workflow graph.
// Checks run in a fixed order and the first violation wins.
func Validate(doc any) Result {
	document, ok := doc.(map[string]any)
	if !ok {
		return invalid("工作流必须是 JSON 对象")
	}

	rawNodes, ok := document["nodes"]
	if !ok {
		return invalid("缺少 nodes 字段")
	}

	rawEdges, ok := document["edges"]
	if !ok {
		return invalid("缺少 edges 字段")
	}

	nodes, ok := rawNodes.([]any)
	if !ok {
		return invalid("nodes 字段必须是数组")
	}

	edges, ok := rawEdges.([]any)
	if !ok {
		return invalid("edges 字段必须是数组")
	}

	if len(nodes) == 0 {
		return invalid("工作流至少需要一个节点")
	}

	if len(nodes) > MaxNodes {
		return invalid(fmt.Sprintf("节点数量为 %d，超过上限 %d", len(nodes), MaxNodes))
	}

	nodeIDs := make(map[string]struct{}, len(nodes))
	validNodeCount := 0

	var invalidTypes []string

	for i, rawNode := range nodes {
		node, ok := rawNode.(map[string]any)
		if !ok {
			return invalid(fmt.Sprintf("第 %d 个节点不是对象", i+1))
		}

		id, ok := node["id"].(string)
		if !ok || id == "" {
			return invalid(fmt.Sprintf("第 %d 个节点缺少 id", i+1))
		}

		moduleType := resolveModuleType(node)
		if moduleType == "" {
			return invalid(fmt.Sprintf("节点 %s 缺少模块类型", id))
		}

		if position, present := node["position"]; present {
			if _, ok := position.(map[string]any); !ok {
				return invalid(fmt.Sprintf("节点 %s 的 position 必须是对象", id))
			}
		}

		data, present := node["data"]
		if !present {
			data, present = node["config"]
		}

		if present {
			serialized, err := json.Marshal(data)
			if err != nil {
				return invalid(fmt.Sprintf("节点 %s 的配置无法序列化", id))
			}

			if len(serialized) > MaxNodeDataBytes {
				return invalid(fmt.Sprintf("节点 %s 的配置超过 %d 字节", id, MaxNodeDataBytes))
			}
		}

		nodeIDs[id] = struct{}{}

		switch {
		case catalog.IsModuleType(moduleType):
			validNodeCount++
		case catalog.IsShellType(moduleType):
			// Editor furniture (groups, notes, wrappers without a real
			// module type). Ignored, but never counts as a valid module.
		default:
			invalidTypes = append(invalidTypes, moduleType)
		}
	}

	if validNodeCount == 0 {
		return invalid("未找到任何有效的模块类型，这可能不是 Web RPA 工作流文件")
	}

	if distinct := dedupe(invalidTypes); len(distinct) > 0 {
		return invalid(unknownTypesMessage(distinct))
	}

	for i, rawEdge := range edges {
		edge, ok := rawEdge.(map[string]any)
		if !ok {
			return invalid(fmt.Sprintf("第 %d 条连线不是对象", i+1))
		}

		source, ok := edge["source"].(string)
		if !ok || source == "" {
			return invalid(fmt.Sprintf("第 %d 条连线缺少 source", i+1))
		}

		target, ok := edge["target"].(string)
		if !ok || target == "" {
			return invalid(fmt.Sprintf("第 %d 条连线缺少 target", i+1))
		}

		if _, exists := nodeIDs[source]; !exists {
			return invalid("连线引用了不存在的来源节点: " + source)
		}

		if _, exists := nodeIDs[target]; !exists {
			return invalid("连线引用了不存在的目标节点: " + target)
		}
	}

	if rawVariables, present := document["variables"]; present {
		variables, ok := rawVariables.([]any)
		if !ok {
			return invalid("variables 字段必须是数组")
		}

		for i, rawVariable := range variables {
			variable, ok := rawVariable.(map[string]any)
			if !ok {
				return invalid(fmt.Sprintf("第 %d 个变量不是对象", i+1))
			}

			name, ok := variable["name"].(string)
			if !ok || name == "" {
				return invalid(fmt.Sprintf("第 %d 个变量缺少 name", i+1))
			}
		}
	}

	if serialized, err := json.Marshal(document); err != nil {
		return invalid("工作流无法序列化: " + err.Error())
	} else if len(serialized) > MaxDocumentBytes {
		return invalid(fmt.Sprintf("工作流文件超过 %d 字节", MaxDocumentBytes))
	}

	return Result{Valid: true, NodeCount: len(nodes)}
}

// dedupe removes duplicates while preserving first-seen order.
func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(values))
	distinct := make([]string, 0, len(values))

	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}

		seen[value] = struct{}{}
		distinct = append(distinct, value)
	}

	return distinct
}

// unknownTypesMessage phrases the diagnostic by scale: a handful of unknown
// types reads as unsupported modules, many reads as a foreign file format.
func unknownTypesMessage(distinct []string) string {
	listed := distinct
	if len(listed) > maxReportedTypes {
		listed = listed[:maxReportedTypes]
	}

	names := strings.Join(listed, "、")

	if len(distinct) > maxReportedTypes {
		return fmt.Sprintf("发现 %d 种未知的模块类型（如 %s 等），这可能不是 Web RPA 工作流文件", len(distinct), names)
	}

	return fmt.Sprintf("包含不支持的模块类型: %s（共 %d 种）", names, len(distinct))
}
