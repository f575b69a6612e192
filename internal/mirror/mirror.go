package mirror

import (
	"context"
)

// Mirror publishes collection documents to a remote copy keyed by session.
type Mirror interface {
	Publish(ctx context.Context, collection string, payload []byte) error
	Fetch(ctx context.Context, collection string) ([]byte, bool, error)
}

type Noop struct{}

func (Noop) Publish(_ context.Context, _ string, _ []byte) error {
	return nil
}

func (Noop) Fetch(_ context.Context, _ string) ([]byte, bool, error) {
	return nil, false, nil
}
