package engine

import (
	"time"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/ids"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/resource"
)

// defaultResourceTTL is used when the store's config carries no
// heartbeat.ttl_seconds override.
const defaultResourceTTL = 5 * time.Minute

func (e *Engine) resourceTTL() time.Duration {
	if h := e.Store.Config.Heartbeat; h != nil && h.TTLSeconds > 0 {
		return time.Duration(h.TTLSeconds) * time.Second
	}
	return defaultResourceTTL
}

// AcquireResourceOptions configures an AcquireResource call.
type AcquireResourceOptions struct {
	Wait        bool
	WaitTimeout time.Duration
	Force       bool
}

// AcquireResource takes exclusive ownership of a named resource.
func (e *Engine) AcquireResource(name, actor string, opts AcquireResourceOptions) (*resource.Snapshot, error) {
	if err := ids.ValidateActor(actor); err != nil {
		return nil, err
	}
	waitTimeout := opts.WaitTimeout
	if waitTimeout <= 0 {
		waitTimeout = 30 * time.Second
	}
	return resource.Acquire(e.Store.Root, name, actor, e.resourceTTL(), opts.Wait, waitTimeout, opts.Force)
}

// ReleaseResource relinquishes actor's hold on name.
func (e *Engine) ReleaseResource(name, actor string) (*resource.Snapshot, error) {
	if err := ids.ValidateActor(actor); err != nil {
		return nil, err
	}
	return resource.Release(e.Store.Root, name, actor)
}

// HeartbeatResource extends actor's TTL on a currently held resource.
func (e *Engine) HeartbeatResource(name, actor string) (*resource.Snapshot, error) {
	if err := ids.ValidateActor(actor); err != nil {
		return nil, err
	}
	return resource.Heartbeat(e.Store.Root, name, actor, e.resourceTTL())
}

// ResourceStatus reads a resource's current snapshot, synthesizing an
// expiry if its TTL has elapsed.
func (e *Engine) ResourceStatus(name, actor string) (*resource.Snapshot, error) {
	if err := ids.ValidateActor(actor); err != nil {
		return nil, err
	}
	return resource.Status(e.Store.Root, name, actor)
}
