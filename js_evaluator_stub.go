//go:build !js_eval

package choices

// NewJSEvaluator is unavailable without the js_eval build tag and returns nil.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	_ = applyJSEvaluatorOptions(opts)
	return nil
}

func isJSEvaluator(Evaluator) bool {
	return false
}

func jsEvaluatorAvailable() bool {
	return false
}
