package stage

import (
	"context"
	"fmt"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/GjhanAi/albion-recipes/internal/recipe"
)

const luaFilterStage = "lua-filter"

// buildLuaPredicate returns the predicate source, wrapping bare expressions
// in a return. Empty means no filter is configured.
func buildLuaPredicate(meta *Meta) string {
	if meta == nil || meta.Lua == nil {
		return ""
	}
	code := strings.TrimSpace(meta.Lua.FilterInline)
	if code == "" {
		return ""
	}
	if !containsReturn(code) {
		return "return (" + code + ")"
	}
	return code
}

// containsReturn reports whether the code string contains the token "return".
func containsReturn(s string) bool {
	return strings.Contains(s, "return")
}

func rowValue(L *lua.LState, r recipe.FlatRow) lua.LValue {
	return toLValue(L, map[string]any{
		"outputId":   r.OutputID,
		"outputQty":  r.OutputQty,
		"inputId":    r.InputID,
		"inputQty":   r.InputQty,
		"station":    r.Station,
		"focusBased": r.FocusBased,
	})
}

// luaFilterRunner keeps rows for which the predicate returns true. One Lua
// state serves the whole pass and the sandbox timeout bounds the pass.
func luaFilterRunner(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	code := buildLuaPredicate(in.Meta)
	if code == "" {
		return in, nil
	}
	cfg := luaSandboxFromMeta(in.Meta)
	if instructionLimitWouldTrip(code, cfg.InstructionLimit) {
		return Envelope{}, luaViolation(sandboxInstructionViolation)
	}

	L := newSandboxLuaState(luaFilterStage, code, cfg)
	defer L.Close()
	runCtx := ctx
	if cfg.TimeoutMs > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(cfg.TimeoutMs)*time.Millisecond)
		defer cancel()
	}
	L.SetContext(runCtx)

	fn, err := L.LoadString(code)
	if err != nil {
		return Envelope{}, fmt.Errorf("%s: %s", luaFilterStage, sanitizeErrorMessage(err.Error()))
	}

	kept := make([]recipe.FlatRow, 0, len(in.Rows))
	nonBool := 0
	for _, r := range in.Rows {
		L.SetGlobal("row", rowValue(L, r))
		L.Push(fn)
		if err := L.PCall(0, 1, nil); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Envelope{}, ctxErr
			}
			switch {
			case isTimeoutError(err):
				return Envelope{}, luaViolation(sandboxTimeoutViolation)
			case isMemoryError(err):
				return Envelope{}, luaViolation(sandboxMemoryViolation)
			}
			return Envelope{}, fmt.Errorf("%s: %s", luaFilterStage, sanitizeErrorMessage(err.Error()))
		}
		ret := L.Get(-1)
		L.Pop(1)
		switch {
		case ret == lua.LTrue:
			kept = append(kept, r)
		case ret.Type() != lua.LTBool && ret != lua.LNil:
			nonBool++
		}
	}
	out := in
	if nonBool > 0 {
		recordError(&out, luaFilterStage, fmt.Errorf("rows dropped on a non-boolean predicate result: %d", nonBool))
		deps.log().Warn("non-boolean filter results", "rows", nonBool)
	}
	out.Filtered = len(in.Rows) - len(kept)
	out.Rows = kept
	deps.log().Info("filtered rows", "kept", len(kept), "dropped", out.Filtered)
	return out, nil
}

func luaViolation(violation string) error {
	return fmt.Errorf("%s: %s", luaFilterStage, violation)
}

func init() { Register(luaFilterStage, luaFilterRunner) }
