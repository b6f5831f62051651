package filter

import (
	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
)

// Compile compiles a subscription filter expression against the filter Env.
func Compile(src string) (*vm.Program, error) {
	return expr.Compile(src, expr.Env(Env{}))
}

// Run evaluates a compiled filter. A nil program matches everything; a
// runtime error or non-boolean result drops the event.
func Run(prog *vm.Program, env Env) bool {
	if prog == nil {
		return true
	}
	res, err := expr.Run(prog, env)
	if err != nil {
		return false
	}
	bRes, ok := res.(bool)
	return ok && bRes
}
