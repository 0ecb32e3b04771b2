package viewer

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

func withCORS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	_ = enc.Encode(v)
}

func parseIntQuery(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func zipPoints(xs, ys []int32) []Point {
	n := min(len(xs), len(ys))
	out := make([]Point, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Point{X: xs[i], Y: ys[i]})
	}
	return out
}

// DuckDB hands LIST columns back as []any and STRUCTs as map[string]any.

func asInt32Slice(v any) []int32 {
	switch vv := v.(type) {
	case []int32:
		return vv
	case []any:
		out := make([]int32, 0, len(vv))
		for _, x := range vv {
			out = append(out, int32(asInt64(x)))
		}
		return out
	default:
		return nil
	}
}

func asCells(v any) []uint64 {
	switch vv := v.(type) {
	case []int64:
		out := make([]uint64, len(vv))
		for i, x := range vv {
			out[i] = uint64(x)
		}
		return out
	case []any:
		out := make([]uint64, 0, len(vv))
		for _, x := range vv {
			out = append(out, uint64(asInt64(x)))
		}
		return out
	default:
		return nil
	}
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int32:
		return int64(t)
	case int:
		return int64(t)
	case uint64:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}

func asBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int64:
		return t != 0
	case int32:
		return t != 0
	default:
		return false
	}
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return ""
	}
}

func asSnakes(v any) []Snake {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	snakes := make([]Snake, 0, len(list))
	for _, it := range list {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		snakes = append(snakes, Snake{
			ID:        int32(asInt64(m["id"])),
			Name:      asString(m["name"]),
			Alive:     asBool(m["alive"]),
			Score:     int32(asInt64(m["score"])),
			Lifespan:  int32(asInt64(m["lifespan"])),
			Direction: asString(m["direction"]),
			Outcome:   asString(m["outcome"]),
			Rank:      int32(asInt64(m["rank"])),
			Body:      zipPoints(asInt32Slice(m["body_x"]), asInt32Slice(m["body_y"])),
		})
	}
	return snakes
}
