package permstore

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// ExprGuardOption configures an expr guard instance.
type ExprGuardOption func(*exprGuard)

// ExprGuardWithProgramCache wires a ProgramCache into the expr guard.
func ExprGuardWithProgramCache(cache ProgramCache) ExprGuardOption {
	return func(g *exprGuard) {
		g.cache = cache
	}
}

// ExprGuardWithFunctionRegistry wires a FunctionRegistry into the expr guard.
func ExprGuardWithFunctionRegistry(registry *FunctionRegistry) ExprGuardOption {
	return func(g *exprGuard) {
		if registry == nil {
			return
		}
		g.registry = registry.Clone()
	}
}

// exprGuard evaluates guard expressions using github.com/expr-lang/expr.
type exprGuard struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewExprGuard constructs the default GuardEvaluator, backed by expr-lang.
func NewExprGuard(opts ...ExprGuardOption) GuardEvaluator {
	g := &exprGuard{}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Evaluate compiles and runs expression against ctx.
func (g *exprGuard) Evaluate(ctx GuardContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapGuardEngineError("expr", fmt.Errorf("expression must not be empty"))
	}
	ctx = ctx.withDefaults()
	env := g.environment(ctx)
	if g.cache == nil {
		result, err := exprlang.Eval(expression, env)
		if err != nil {
			return nil, wrapGuardError("expr", expression, ctx.Key, err)
		}
		return result, nil
	}
	program, err := g.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	result, err := exprlang.Run(program, env)
	if err != nil {
		return nil, wrapGuardError("expr", expression, ctx.Key, err)
	}
	return result, nil
}

// Compile returns a compiled guard that evaluates expression per invocation.
func (g *exprGuard) Compile(expression string, _ ...CompileOption) (CompiledGuard, error) {
	if expression == "" {
		return nil, wrapGuardEngineError("expr", fmt.Errorf("expression must not be empty"))
	}
	program, err := g.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &exprCompiledGuard{
		guard:      g,
		program:    program,
		expression: expression,
	}, nil
}

func (g *exprGuard) loadOrCompile(expression string) (*exprvm.Program, error) {
	if g.cache != nil {
		if cached, ok := g.cache.Get(expression); ok {
			if program, ok := cached.(*exprvm.Program); ok {
				return program, nil
			}
		}
	}
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	for _, name := range g.registryNames() {
		fn := g.registryFunction(name)
		options = append(options, exprlang.Function(name, fn))
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, wrapGuardError("expr", expression, "", err)
	}
	if g.cache != nil {
		g.cache.Set(expression, program)
	}
	return program, nil
}

type exprCompiledGuard struct {
	guard      *exprGuard
	program    *exprvm.Program
	expression string
}

func (c *exprCompiledGuard) Evaluate(ctx GuardContext) (any, error) {
	if c.guard == nil {
		return nil, wrapGuardEngineError("expr", fmt.Errorf("compiled guard missing evaluator"))
	}
	ctx = ctx.withDefaults()
	if c.program == nil {
		return c.guard.Evaluate(ctx, c.expression)
	}
	env := c.guard.environment(ctx)
	result, err := exprlang.Run(c.program, env)
	if err != nil {
		return nil, wrapGuardError("expr", c.expression, ctx.Key, err)
	}
	return result, nil
}

// environment merges the store snapshot under and alongside the reserved
// bindings. Reserved names always win over snapshot fields of the same name.
func (g *exprGuard) environment(ctx GuardContext) map[string]any {
	env := map[string]any{}
	for key, value := range ctx.snapshotMap() {
		env[key] = value
	}
	if g.registry != nil {
		env["call"] = func(name string, arguments ...any) (any, error) {
			return g.registry.Call(name, arguments...)
		}
		for _, name := range g.registry.Names() {
			fn := name
			env[fn] = func(arguments ...any) (any, error) {
				return g.registry.Call(fn, arguments...)
			}
		}
	}
	env["key"] = ctx.Key
	env["action"] = string(ctx.Action)
	env["path"] = ctx.Path
	env["now"] = ctx.timestamp()
	env["args"] = ctx.Args
	env["metadata"] = ctx.Metadata
	env["store"] = ctx.snapshotMap()
	return env
}

func (g *exprGuard) registryNames() []string {
	if g == nil || g.registry == nil {
		return nil
	}
	return g.registry.Names()
}

func (g *exprGuard) registryFunction(name string) func(...any) (any, error) {
	if g == nil || g.registry == nil {
		return nil
	}
	return func(arguments ...any) (any, error) {
		return g.registry.Call(name, arguments...)
	}
}
