package constants

// Valve is the per-line valve selection. ValveNone is the standard valve.
type Valve string

const (
	ValveNone        Valve = "no"
	ValveYes         Valve = "Yes"
	ValveHorizontal  Valve = "Horizontal valve"
	ValveVertical    Valve = "Vertical valve"
	ValveRectangular Valve = "Rectangular valve"
)

var allValves = []Valve{ValveNone, ValveYes, ValveHorizontal, ValveVertical, ValveRectangular}

// ValveValues returns the allowed valve strings in display order.
func ValveValues() []string {
	out := make([]string, len(allValves))
	for i, v := range allValves {
		out[i] = string(v)
	}
	return out
}

// ParseValve returns the exact enum value, or ValveNone and false.
func ParseValve(s string) (Valve, bool) {
	for _, v := range allValves {
		if s == string(v) {
			return v, true
		}
	}
	return ValveNone, false
}
