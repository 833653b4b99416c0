package permstore

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
	functions "github.com/google/cel-go/common/functions"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// CELGuardOption configures the CEL guard.
type CELGuardOption func(*celGuard)

// CELGuardWithProgramCache wires a ProgramCache into the CEL guard.
func CELGuardWithProgramCache(cache ProgramCache) CELGuardOption {
	return func(g *celGuard) {
		g.cache = cache
	}
}

// CELGuardWithFunctionRegistry wires a FunctionRegistry into the CEL guard.
func CELGuardWithFunctionRegistry(registry *FunctionRegistry) CELGuardOption {
	return func(g *celGuard) {
		if registry == nil {
			return
		}
		g.registry = registry.Clone()
	}
}

type celProgram struct {
	env     *celgo.Env
	program celgo.Program
}

type celGuard struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewCELGuard constructs a GuardEvaluator backed by cel-go.
func NewCELGuard(opts ...CELGuardOption) GuardEvaluator {
	g := &celGuard{}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

func (g *celGuard) Evaluate(ctx GuardContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapGuardEngineError("cel", fmt.Errorf("expression must not be empty"))
	}
	ctx = ctx.withDefaults()
	snapshot := ctx.snapshotMap()
	program, err := g.loadOrCompile(expression, snapshot)
	if err != nil {
		return nil, wrapGuardError("cel", expression, ctx.Key, err)
	}
	out, _, err := program.program.Eval(g.activation(ctx, snapshot))
	if err != nil {
		return nil, wrapGuardError("cel", expression, ctx.Key, err)
	}
	return out.Value(), nil
}

func (g *celGuard) Compile(expression string, _ ...CompileOption) (CompiledGuard, error) {
	if expression == "" {
		return nil, wrapGuardEngineError("cel", fmt.Errorf("expression must not be empty"))
	}
	return &celCompiledGuard{
		guard:      g,
		expression: expression,
	}, nil
}

func (g *celGuard) loadOrCompile(expression string, snapshot map[string]any) (*celProgram, error) {
	if snapshot == nil {
		snapshot = map[string]any{}
	}
	if g.cache != nil {
		if cached, ok := g.cache.Get(expression); ok {
			if program, ok := cached.(*celProgram); ok {
				return program, nil
			}
		}
	}

	env, err := g.buildEnv(snapshot)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	checked, issues := env.Check(ast)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prg, err := env.Program(checked)
	if err != nil {
		return nil, err
	}

	bundle := &celProgram{
		env:     env,
		program: prg,
	}
	if g.cache != nil {
		g.cache.Set(expression, bundle)
	}
	return bundle, nil
}

func (g *celGuard) buildEnv(snapshot map[string]any) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("key", celgo.StringType),
		celgo.Variable("action", celgo.StringType),
		celgo.Variable("path", celgo.StringType),
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", celgo.DynType),
		celgo.Variable("metadata", celgo.DynType),
		celgo.Variable("store", celgo.DynType),
	}
	if g.registry != nil {
		opts = append(opts, celgo.Function("call",
			celgo.Overload("call_string", []*celgo.Type{celgo.StringType}, celgo.DynType),
			celgo.Overload("call_string_dyn", []*celgo.Type{celgo.StringType, celgo.DynType}, celgo.DynType),
			celgo.Overload("call_string_dyn_dyn", []*celgo.Type{celgo.StringType, celgo.DynType, celgo.DynType}, celgo.DynType),
			celgo.SingletonFunctionBinding(g.callBinding()),
		))
	}
	for key := range snapshot {
		switch key {
		case "key", "action", "path", "now", "args", "metadata", "store":
			continue
		}
		opts = append(opts, celgo.Variable(key, celgo.DynType))
	}
	return celgo.NewEnv(opts...)
}

func (g *celGuard) activation(ctx GuardContext, snapshot map[string]any) map[string]any {
	activation := map[string]any{}
	for key, value := range snapshot {
		activation[key] = value
	}
	activation["key"] = ctx.Key
	activation["action"] = string(ctx.Action)
	activation["path"] = ctx.Path
	activation["now"] = ctx.timestamp()
	activation["args"] = ctx.Args
	activation["metadata"] = ctx.Metadata
	activation["store"] = snapshot
	if g.registry != nil {
		activation["call"] = func(name string, arguments ...any) (any, error) {
			return g.registry.Call(name, arguments...)
		}
	}
	return activation
}

type celCompiledGuard struct {
	guard      *celGuard
	expression string
}

func (c *celCompiledGuard) Evaluate(ctx GuardContext) (any, error) {
	if c.guard == nil {
		return nil, wrapGuardEngineError("cel", fmt.Errorf("compiled guard missing evaluator"))
	}
	ctx = ctx.withDefaults()
	snapshot := ctx.snapshotMap()
	program, err := c.guard.loadOrCompile(c.expression, snapshot)
	if err != nil {
		return nil, wrapGuardError("cel", c.expression, ctx.Key, err)
	}
	out, _, err := program.program.Eval(c.guard.activation(ctx, snapshot))
	if err != nil {
		return nil, wrapGuardError("cel", c.expression, ctx.Key, err)
	}
	return out.Value(), nil
}

func (g *celGuard) callBinding() functions.FunctionOp {
	return func(values ...ref.Val) ref.Val {
		if g.registry == nil {
			return types.NewErr("permstore: function registry not configured")
		}
		if len(values) == 0 {
			return types.NewErr("permstore: call requires function name")
		}
		name, ok := values[0].Value().(string)
		if !ok {
			return types.NewErr("permstore: call name must be string")
		}
		args := make([]any, 0, len(values)-1)
		for _, val := range values[1:] {
			args = append(args, val.Value())
		}
		result, err := g.registry.Call(name, args...)
		if err != nil {
			return types.WrapErr(err)
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}
