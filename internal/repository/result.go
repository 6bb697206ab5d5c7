package repository

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

// Result carries the outcome of one datastore read. Callers decide whether
// an error propagates (Unwrap) or degrades to the zero value (OrEmpty).
type Result[T any] struct {
	Data  T
	Count int64
	Err   error
}

// Query runs fn, capturing its error or a panic in the returned Result.
// Count is the slice length for slice data.
func Query[T any](name string, fn func() (T, error)) (res Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			res = Result[T]{Err: fmt.Errorf("%s: panic: %v", name, r)}
		}
	}()

	data, err := fn()
	if err != nil {
		return Result[T]{Err: fmt.Errorf("%s: %w", name, err)}
	}
	return Result[T]{Data: data, Count: lengthOf(data)}
}

// Count wraps a count query; the count is both Data and Count.
func Count(name string, fn func() (int64, error)) Result[int64] {
	res := Query(name, fn)
	res.Count = res.Data
	return res
}

func (r Result[T]) OK() bool {
	return r.Err == nil
}

func (r Result[T]) Unwrap() (T, error) {
	return r.Data, r.Err
}

// OrEmpty logs a failed read and returns the zero value of T.
func (r Result[T]) OrEmpty(log *zap.Logger) T {
	if r.Err != nil {
		log.Warn("Query degraded to empty result", zap.Error(r.Err))
		var zero T
		return zero
	}
	return r.Data
}

func lengthOf(v interface{}) int64 {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return int64(rv.Len())
	}
	return 0
}
