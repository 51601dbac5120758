package stage

import (
	"context"
	"errors"
	"hash/fnv"
	"math/rand"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

const (
	sandboxTimeoutViolation     = "sandbox timeout"
	sandboxInstructionViolation = "sandbox instruction limit"
	sandboxMemoryViolation      = "sandbox memory limit"
)

const (
	defaultLuaTimeoutMs        = 2000
	defaultLuaInstructionLimit = 1000000
	defaultLuaMemoryLimitBytes = 8 << 20
)

func luaSandboxFromMeta(meta *Meta) LuaSandboxMeta {
	cfg := LuaSandboxMeta{
		TimeoutMs:        defaultLuaTimeoutMs,
		InstructionLimit: defaultLuaInstructionLimit,
		MemoryLimitBytes: defaultLuaMemoryLimitBytes,
		Libs: LuaSandboxLibsMeta{
			Base:   true,
			Table:  true,
			String: true,
			Math:   true,
		},
		DeterministicRandom: true,
	}
	if meta == nil || meta.LuaSandbox == nil {
		return cfg
	}
	in := meta.LuaSandbox
	if in.TimeoutMs >= 0 {
		cfg.TimeoutMs = in.TimeoutMs
	}
	if in.InstructionLimit >= 0 {
		cfg.InstructionLimit = in.InstructionLimit
	}
	if in.MemoryLimitBytes >= 0 {
		cfg.MemoryLimitBytes = in.MemoryLimitBytes
	}
	cfg.Libs = in.Libs
	cfg.DeterministicRandom = in.DeterministicRandom
	return cfg
}

func newSandboxLuaState(stage, seedKey string, cfg LuaSandboxMeta) *lua.LState {
	regMax := registryMaxFromMemory(cfg.MemoryLimitBytes)
	L := lua.NewState(lua.Options{
		SkipOpenLibs:     true,
		RegistrySize:     256,
		RegistryMaxSize:  regMax,
		RegistryGrowStep: 0,
	})
	openLib := func(name string, f lua.LGFunction) {
		L.Push(L.NewFunction(f))
		L.Push(lua.LString(name))
		L.Call(1, 0)
	}
	if cfg.Libs.Base {
		openLib("base", lua.OpenBase)
	}
	if cfg.Libs.String {
		openLib("string", lua.OpenString)
	}
	if cfg.Libs.Table {
		openLib("table", lua.OpenTable)
	}
	if cfg.Libs.Math {
		openLib("math", lua.OpenMath)
	}
	if cfg.Libs.Math && cfg.DeterministicRandom {
		installDeterministicRandom(L, deterministicSeed(stage, seedKey))
	}
	return L
}

func registryMaxFromMemory(memoryLimitBytes int) int {
	if memoryLimitBytes <= 0 {
		return 256
	}
	n := memoryLimitBytes / 64
	if n < 128 {
		n = 128
	}
	if n > 4096 {
		n = 4096
	}
	return n
}

func deterministicSeed(stage, key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(stage))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64() & 0x7fffffffffffffff)
}

func installDeterministicRandom(L *lua.LState, seed int64) {
	mathTbl, ok := L.GetGlobal("math").(*lua.LTable)
	if !ok || mathTbl == nil {
		return
	}
	rng := rand.New(rand.NewSource(seed))
	mathTbl.RawSetString("random", L.NewFunction(func(L *lua.LState) int {
		switch L.GetTop() {
		case 0:
			L.Push(lua.LNumber(rng.Float64()))
			return 1
		case 1:
			max := L.CheckInt(1)
			if max < 1 {
				L.ArgError(1, "interval is empty")
				return 0
			}
			L.Push(lua.LNumber(rng.Intn(max) + 1))
			return 1
		default:
			min := L.CheckInt(1)
			max := L.CheckInt(2)
			if max < min {
				L.ArgError(2, "interval is empty")
				return 0
			}
			L.Push(lua.LNumber(rng.Intn(max-min+1) + min))
			return 1
		}
	}))
	mathTbl.RawSetString("randomseed", L.NewFunction(func(L *lua.LState) int {
		return 0
	}))
}

// instructionLimitWouldTrip is a static cost estimate; gopher-lua has no
// instruction counter hook.
func instructionLimitWouldTrip(code string, instructionLimit int) bool {
	if instructionLimit <= 0 {
		return false
	}
	cost := len(code) * 10
	lower := strings.ToLower(code)
	if strings.Contains(lower, "while ") || strings.Contains(lower, "repeat") || strings.Contains(lower, "for ") {
		cost += 1000000
	}
	return cost > instructionLimit
}

func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "deadline") || strings.Contains(lower, "context canceled")
}

func isMemoryError(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "registry overflow")
}

// toLValue converts a Go value to a Lua value.
func toLValue(L *lua.LState, v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case string:
		return lua.LString(x)
	case bool:
		return lua.LBool(x)
	case int:
		return lua.LNumber(float64(x))
	case int64:
		return lua.LNumber(float64(x))
	case float64:
		return lua.LNumber(x)
	case map[string]any:
		tbl := L.NewTable()
		for k, v2 := range x {
			tbl.RawSetString(k, toLValue(L, v2))
		}
		return tbl
	case []any:
		tbl := L.NewTable()
		for i, v2 := range x {
			tbl.RawSetInt(i+1, toLValue(L, v2))
		}
		return tbl
	default:
		return lua.LNil
	}
}
