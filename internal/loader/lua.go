package loader

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Shopify/go-lua"

	"github.com/copperline/docflow/pkg/api"
)

// Structured-source flow definitions are Lua files that define a global
// build_flow() function returning a table shaped like a FlowDefinition.
// The file runs once at load time in a sandboxed state.

const (
	buildFunc = "build_flow"

	luaGlobalTableIndex = -2
	luaGlobalTableName  = "_G"
)

var luaExclude = [...]string{
	"io", "os", "debug", "package", "require", "dofile", "loadfile", "load",
}

func buildLuaFlow(data []byte, name string) (*api.FlowDefinition, error) {
	l := lua.NewState()
	setupSandbox(l)

	if err := lua.LoadString(l, string(data)); err != nil {
		return nil, fmt.Errorf("%w: %s: %v",
			api.ErrInvalidDefinition, name, err)
	}
	if err := l.ProtectedCall(0, 0, 0); err != nil {
		return nil, fmt.Errorf("%w: %s: %v",
			api.ErrInvalidDefinition, name, err)
	}

	l.Global(buildFunc)
	if !l.IsFunction(-1) {
		return nil, fmt.Errorf("%w: flow %q must define a %s() function",
			api.ErrMalformedFlow, name, buildFunc)
	}
	if err := l.ProtectedCall(0, 1, 0); err != nil {
		return nil, fmt.Errorf("%w: %s: %s(): %v",
			api.ErrMalformedFlow, name, buildFunc, err)
	}
	if !l.IsTable(-1) {
		return nil, fmt.Errorf("%w: flow %q: %s() must return a table",
			api.ErrMalformedFlow, name, buildFunc)
	}

	value := luaToGo(l, -1)
	l.Pop(1)

	fields, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: flow %q: %s() returned an array",
			api.ErrMalformedFlow, name, buildFunc)
	}

	encoded, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: flow %q: %v",
			api.ErrMalformedFlow, name, err)
	}
	return decodeDefinition(encoded)
}

func setupSandbox(l *lua.State) {
	lua.OpenLibraries(l)
	l.Global(luaGlobalTableName)
	for _, name := range luaExclude {
		l.PushNil()
		l.SetField(luaGlobalTableIndex, name)
	}
	l.Pop(1)
}

func luaToGo(l *lua.State, index int) any {
	switch l.TypeOf(index) {
	case lua.TypeNil:
		return nil
	case lua.TypeBoolean:
		return l.ToBoolean(index)
	case lua.TypeNumber:
		return luaNumberToGo(l, index)
	case lua.TypeString:
		s, _ := l.ToString(index)
		return s
	case lua.TypeTable:
		return luaTableToGo(l, index)
	default:
		return nil
	}
}

func luaNumberToGo(l *lua.State, index int) any {
	num, _ := l.ToNumber(index)
	if num == float64(int(num)) {
		return int(num)
	}
	return num
}

// luaTableToGo converts a Lua table to a Go value: a slice when every key
// is a contiguous 1-based integer, a string-keyed map otherwise
func luaTableToGo(l *lua.State, index int) any {
	numeric := map[int]any{}
	fields := map[string]any{}
	onlyNumeric := true

	l.PushNil()
	for l.Next(index - 1) {
		v := luaToGo(l, -1)
		switch l.TypeOf(-2) {
		case lua.TypeNumber:
			n, _ := l.ToNumber(-2)
			numeric[int(n)] = v
		case lua.TypeString:
			k, _ := l.ToString(-2)
			fields[k] = v
			onlyNumeric = false
		default:
			onlyNumeric = false
		}
		l.Pop(1)
	}

	if onlyNumeric && len(numeric) > 0 {
		arr := make([]any, 0, len(numeric))
		for i := 1; i <= len(numeric); i++ {
			v, ok := numeric[i]
			if !ok {
				break
			}
			arr = append(arr, v)
		}
		if len(arr) == len(numeric) {
			return arr
		}
	}

	for k, v := range numeric {
		fields[strconv.Itoa(k)] = v
	}
	return fields
}
