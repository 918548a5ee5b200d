package kbopts

// builtinOpt names the lookup helper bound into every engine:
// opt("keyboard", "layout") returns the value or "" when absent.
const builtinOpt = "opt"

// ruleVariables returns the variables shared by every engine: now, args,
// metadata, the optional scope name and each top-level snapshot entry.
func ruleVariables(ctx RuleContext) map[string]any {
	vars := map[string]any{
		"now":      ctx.timestamp(),
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
	}
	if name, ok := ctx.scopeBinding(); ok {
		vars["scope"] = name
	}
	for key, value := range snapshotAsMap(ctx.Snapshot) {
		vars[key] = value
	}
	return vars
}

// optLookup reads scope/key from the rule snapshot.
func optLookup(ctx RuleContext, scope, key string) string {
	pairs, ok := snapshotAsMap(ctx.Snapshot)[scope]
	if !ok {
		return ""
	}
	switch values := pairs.(type) {
	case map[string]any:
		if text, ok := values[key].(string); ok {
			return text
		}
	case map[string]string:
		return values[key]
	}
	return ""
}

func snapshotAsMap(value any) map[string]any {
	switch m := value.(type) {
	case map[string]any:
		return m
	case map[string]map[string]string:
		out := make(map[string]any, len(m))
		for scope, pairs := range m {
			out[scope] = pairs
		}
		return out
	default:
		return map[string]any{}
	}
}
