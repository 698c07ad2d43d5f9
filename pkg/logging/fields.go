package logging

import (
	"time"
)

func String(key, value string) Field { return Field{Key: key, Value: value} }

func Strings(key string, values []string) Field { return Field{Key: key, Value: values} }

func Int(key string, value int) Field { return Field{Key: key, Value: value} }

func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }

func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Error renders err as its message so the entry stays JSON-encodable.
func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field { return Field{Key: key, Value: value} }

func Component(name string) Field { return String("component", name) }

func Concept(name string) Field { return String("concept", name) }

func Relation(label string) Field { return String("relation", label) }

func QueryID(id string) Field { return String("query_id", id) }

func QueryKind(kind string) Field { return String("query_kind", kind) }

func Count(n int) Field { return Int("count", n) }

func Latency(d time.Duration) Field { return Duration("latency", d) }

func Path(p string) Field { return String("path", p) }
