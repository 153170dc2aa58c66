package cache

import "context"

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string, any) (bool, error) { return false, nil }

func (Noop) Set(context.Context, string, any) error { return nil }

func (Noop) DeletePrefix(context.Context, string) error { return nil }

func (Noop) Ping(context.Context) error { return nil }

func (Noop) Close() error { return nil }
