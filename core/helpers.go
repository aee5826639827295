package orchestration

import (
	"context"
	"fmt"
	"reflect"
)

// isNilClient detects nil and typed-nil interface values so facades never
// store an unusable interface wrapper as a configured client.
func isNilClient(client any) bool {
	if client == nil {
		return true
	}

	v := reflect.ValueOf(client)
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}

// closeClient shuts down a client regardless of which Close signature it
// exposes. Clients without a Close method are left alone.
func closeClient(ctx context.Context, client any, what string) error {
	switch c := client.(type) {
	case interface{ Close(context.Context) error }:
		if err := c.Close(ctx); err != nil {
			return fmt.Errorf("failed to close %s: %w", what, err)
		}
	case interface{ Close(context.Context) }:
		c.Close(ctx)
	case interface{ Close() error }:
		if err := c.Close(); err != nil {
			return fmt.Errorf("failed to close %s: %w", what, err)
		}
	case interface{ Close() }:
		c.Close()
	}

	return nil
}
