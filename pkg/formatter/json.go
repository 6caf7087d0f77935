package formatter

import (
	"encoding/json"
	"math"

	"github.com/thomasrohde/minischeme/pkg/heap"
)

// ToJSON marshals a value to JSON. Lists become arrays, symbols strings,
// integral numbers integers; void and end of input become null and
// procedures their printed form.
func ToJSON(h *heap.Heap, e heap.Exp) ([]byte, error) {
	return json.Marshal(toRaw(h, e))
}

func toRaw(h *heap.Heap, e heap.Exp) any {
	switch e.Kind {
	case heap.KindNumber:
		if e.Num == math.Trunc(e.Num) && !math.IsInf(e.Num, 0) && math.Abs(e.Num) < 1e15 {
			return int64(e.Num)
		}
		if math.IsInf(e.Num, 0) || math.IsNaN(e.Num) {
			return FormatNumber(e.Num)
		}
		return e.Num
	case heap.KindSymbol:
		return h.SymbolName(e)
	case heap.KindList:
		n := h.Len(e)
		items := make([]any, n)
		for i := 0; i < n; i++ {
			items[i] = toRaw(h, h.At(e, i))
		}
		return items
	case heap.KindNative, heap.KindProcedure:
		return Format(h, e)
	}
	return nil
}
