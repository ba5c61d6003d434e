package workflow

// nodeConfig returns the node's configuration mapping. Editor exports use
// "data"; older hand-authored exports use "config". Nodes without either
// resolve to nil.
func nodeConfig(node map[string]any) map[string]any {
	if config, ok := node["data"].(map[string]any); ok {
		return config
	}

	if config, ok := node["config"].(map[string]any); ok {
		return config
	}

	return nil
}

// resolveModuleType resolves the effective module type of a node.
//
// The visual editor wraps every module in a generic shell node and stores
// the real type in data.moduleType (legacy exports: config.moduleType).
// Simplified exports carry the module type directly as the node type. The
// wrapped form wins when both are present; an empty result means the node
// has no resolvable type at all.
func resolveModuleType(node map[string]any) string {
	for _, key := range []string{"data", "config"} {
		config, ok := node[key].(map[string]any)
		if !ok {
			continue
		}

		if moduleType, ok := config["moduleType"].(string); ok && moduleType != "" {
			return moduleType
		}
	}

	if nodeType, ok := node["type"].(string); ok {
		return nodeType
	}

	return ""
}
