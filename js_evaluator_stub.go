//go:build !js_eval

package kbopts

// NewJSEvaluator returns nil unless built with the js_eval tag.
func NewJSEvaluator(...JSEvaluatorOption) Evaluator {
	return nil
}

func isJSEvaluator(Evaluator) bool {
	return false
}

func jsEvaluatorAvailable() bool {
	return false
}
