//go:build js_eval

package permstore

import (
	"fmt"

	"github.com/dop251/goja"
)

type jsGuard struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewJSGuard constructs a GuardEvaluator backed by goja.
func NewJSGuard(opts ...JSGuardOption) GuardEvaluator {
	cfg := applyJSGuardOptions(opts)
	return &jsGuard{
		cache:    cfg.cache,
		registry: cfg.registry,
	}
}

func (g *jsGuard) Evaluate(ctx GuardContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapGuardEngineError("js", fmt.Errorf("expression must not be empty"))
	}
	ctx = ctx.withDefaults()
	if g.cache == nil {
		return g.run(ctx, expression, nil)
	}
	program, err := g.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return g.run(ctx, expression, program)
}

func (g *jsGuard) Compile(expression string, _ ...CompileOption) (CompiledGuard, error) {
	if expression == "" {
		return nil, wrapGuardEngineError("js", fmt.Errorf("expression must not be empty"))
	}
	program, err := g.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &jsCompiledGuard{
		guard:      g,
		expression: expression,
		program:    program,
	}, nil
}

func (g *jsGuard) loadOrCompile(expression string) (*goja.Program, error) {
	if g.cache != nil {
		if cached, ok := g.cache.Get(expression); ok {
			if program, ok := cached.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	program, err := goja.Compile("", g.wrapExpression(expression), false)
	if err != nil {
		return nil, wrapGuardError("js", expression, "", err)
	}
	if g.cache != nil {
		g.cache.Set(expression, program)
	}
	return program, nil
}

func (g *jsGuard) run(ctx GuardContext, expression string, program *goja.Program) (any, error) {
	vm := goja.New()
	g.injectContext(vm, ctx)
	if program != nil {
		value, err := vm.RunProgram(program)
		if err != nil {
			return nil, wrapGuardError("js", expression, ctx.Key, err)
		}
		return value.Export(), nil
	}
	value, err := vm.RunString(g.wrapExpression(expression))
	if err != nil {
		return nil, wrapGuardError("js", expression, ctx.Key, err)
	}
	return value.Export(), nil
}

func (g *jsGuard) injectContext(vm *goja.Runtime, ctx GuardContext) {
	for key, value := range ctx.snapshotMap() {
		vm.Set(key, value)
	}
	vm.Set("key", ctx.Key)
	vm.Set("action", string(ctx.Action))
	vm.Set("path", ctx.Path)
	vm.Set("now", ctx.timestamp())
	vm.Set("args", ctx.Args)
	vm.Set("metadata", ctx.Metadata)
	vm.Set("store", ctx.snapshotMap())
	if g.registry != nil {
		vm.Set("call", func(name string, arguments ...any) (any, error) {
			return g.registry.Call(name, arguments...)
		})
		for _, name := range g.registry.Names() {
			fn := name
			vm.Set(fn, func(arguments ...any) (any, error) {
				return g.registry.Call(fn, arguments...)
			})
		}
	}
}

func (g *jsGuard) wrapExpression(expression string) string {
	return fmt.Sprintf("(function(){ return (%s); })()", expression)
}

type jsCompiledGuard struct {
	guard      *jsGuard
	expression string
	program    *goja.Program
}

func (c *jsCompiledGuard) Evaluate(ctx GuardContext) (any, error) {
	if c.guard == nil {
		return nil, wrapGuardEngineError("js", fmt.Errorf("compiled guard missing evaluator"))
	}
	ctx = ctx.withDefaults()
	return c.guard.run(ctx, c.expression, c.program)
}

func jsGuardAvailable() bool {
	return true
}
