package inject

import (
	"context"
	"reflect"
)

// Disposable is implemented by values that hold resources. A value built by
// a factory that implements it, and whose build returned no ReleaseFunc, is
// closed when its owning scope closes.
//
// Example:
//
//	type DatabaseConnection struct {
//	    conn *sql.DB
//	}
//
//	func (dc *DatabaseConnection) Close() error {
//	    return dc.conn.Close()
//	}
type Disposable interface {
	Close() error
}

// DisposableWithContext is like Disposable but receives the scope's context,
// detached from its cancellation.
type DisposableWithContext interface {
	Close(ctx context.Context) error
}

// releaseFor returns the ReleaseFunc that closes v, or nil.
func releaseFor(v any) ReleaseFunc {
	if rv := reflect.ValueOf(v); !rv.IsValid() || (rv.Kind() == reflect.Pointer && rv.IsNil()) {
		return nil
	}

	switch d := v.(type) {
	case DisposableWithContext:
		return d.Close
	case Disposable:
		return func(context.Context) error {
			return d.Close()
		}
	default:
		return nil
	}
}
