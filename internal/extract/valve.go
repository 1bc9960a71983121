package extract

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/joseph-ayodele/orders-intake/constants"
	"github.com/joseph-ayodele/orders-intake/internal/entity"
	"github.com/joseph-ayodele/orders-intake/internal/llm"
)

// valves is left untyped so a malformed reply degrades to standard valves
// instead of failing the call.
var valveSchema = llm.Object(map[string]any{
	"valves": map[string]any{},
})

type valveReply struct {
	Valves json.RawMessage `json:"valves"`
}

type valveData struct {
	Text   string
	Valves []string
}

// Valves returns the valve per line as the model listed them. Values outside the
// enumeration become the standard valve; a reply that is not a list yields nil.
func (e *Extractors) Valves(ctx context.Context, entry entity.Entry) ([]constants.Valve, error) {
	var reply valveReply
	data := valveData{Text: OrderText(entry), Valves: constants.ValveValues()}
	if err := e.call(ctx, "valve", data, valveSchema, &reply); err != nil {
		return nil, err
	}
	return parseValves(reply.Valves), nil
}

func parseValves(raw json.RawMessage) []constants.Valve {
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]constants.Valve, len(items))
	for i, it := range items {
		s, _ := it.(string)
		v, ok := constants.ParseValve(strings.TrimSpace(s))
		if !ok {
			v = constants.ValveNone
		}
		out[i] = v
	}
	return out
}

// FitValves pads with the standard valve, or truncates, to n lines.
func FitValves(valves []constants.Valve, n int) []constants.Valve {
	out := make([]constants.Valve, n)
	for i := range out {
		if i < len(valves) {
			out[i] = valves[i]
		} else {
			out[i] = constants.ValveNone
		}
	}
	return out
}
