// Package resource implements Lattice's optional exclusive-access
// coordination subsystem: a parallel event-sourcing track, separate from
// tasks, whose snapshot tracks a single current holder with a TTL
// evaluated lazily at read time. Writes follow the same event-first shape
// as the task write path, applied to the resources/ tree instead of
// tasks/.
package resource

import (
	"os"
	"path/filepath"
	"time"

	"github.com/Stage-11-Agentics/lattice-sub001/internal/errs"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/event"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/fsutil"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/ids"
	"github.com/Stage-11-Agentics/lattice-sub001/internal/lock"
)

// Holder describes who currently holds a resource and until when.
type Holder struct {
	Actor      string `json:"actor"`
	AcquiredAt string `json:"acquired_at"`
	ExpiresAt  string `json:"expires_at,omitempty"`
}

// Snapshot is the materialized state of one resource.
type Snapshot struct {
	SchemaVersion int     `json:"schema_version"`
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Holder        *Holder `json:"holder,omitempty"`
	UpdatedAt     string  `json:"updated_at"`
	LastEventID   string  `json:"last_event_id"`
}

// SchemaVersion is the current on-disk resource snapshot schema version.
const SchemaVersion = 1

func dir(root, name string) string { return filepath.Join(root, ".lattice", "resources", name) }

func snapshotPath(root, name string) string { return filepath.Join(dir(root, name), "resource.json") }

func eventsPath(root, name string) string {
	return filepath.Join(root, ".lattice", "events", "res_"+name+".jsonl")
}

func lockKey(name string) string { return "resource_" + name }

// Apply folds one resource event onto a prior snapshot (possibly nil),
// mirroring internal/snapshot.Apply's reducer contract for tasks.
func Apply(prior *Snapshot, e *event.Event) (*Snapshot, error) {
	var s Snapshot
	if prior != nil {
		s = *prior
		if prior.Holder != nil {
			h := *prior.Holder
			s.Holder = &h
		}
	}

	switch e.Type {
	case event.ResourceCreated:
		s.SchemaVersion = SchemaVersion
		s.ID = e.ResourceID
		if name, _ := e.Data["name"].(string); name != "" {
			s.Name = name
		}
	case event.ResourceAcquired:
		actor, _ := e.Data["actor"].(string)
		expiresAt, _ := e.Data["expires_at"].(string)
		s.Holder = &Holder{Actor: actor, AcquiredAt: e.TS, ExpiresAt: expiresAt}
	case event.ResourceHeartbeat:
		if s.Holder != nil {
			if expiresAt, _ := e.Data["expires_at"].(string); expiresAt != "" {
				s.Holder.ExpiresAt = expiresAt
			}
		}
	case event.ResourceReleased, event.ResourceExpired:
		s.Holder = nil
	case event.ResourceUpdated:
		// metadata-only touch; no holder change.
	default:
		if !event.IsBuiltinResource(e.Type) {
			return nil, errs.New(errs.ValidationError, "unrecognized resource event type %q", e.Type)
		}
	}

	s.UpdatedAt = e.TS
	s.LastEventID = e.ID
	return &s, nil
}

func readSnapshot(root, name string) (*Snapshot, error) {
	data, err := os.ReadFile(snapshotPath(root, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.Wrap(errs.IOError, err, "read resource %s", name)
	}
	var s Snapshot
	if err := unmarshalSnapshot(data, &s); err != nil {
		return nil, errs.Wrap(errs.Corrupt, err, "parse resource %s", name)
	}
	return &s, nil
}

func writeEventAndSnapshot(root, name string, e *event.Event, snap *Snapshot) error {
	line, err := event.Serialize(e)
	if err != nil {
		return err
	}
	if err := fsutil.AppendJSONL(eventsPath(root, name), line); err != nil {
		return err
	}
	data, err := marshalSnapshot(snap)
	if err != nil {
		return err
	}
	if err := fsutil.EnsureDir(dir(root, name)); err != nil {
		return err
	}
	return fsutil.AtomicWrite(snapshotPath(root, name), data)
}

// expireIfStale checks the resource's current holder against now and, if
// the TTL has elapsed, synthesizes a resource_expired event under the
// caller's already-held lock before returning the refreshed snapshot.
func expireIfStale(root, name, actor string, snap *Snapshot, now time.Time) (*Snapshot, error) {
	if snap == nil || snap.Holder == nil || snap.Holder.ExpiresAt == "" {
		return snap, nil
	}
	expiresAt, err := time.Parse(time.RFC3339, snap.Holder.ExpiresAt)
	if err != nil {
		return snap, nil
	}
	if !now.After(expiresAt) {
		return snap, nil
	}

	e, err := event.CreateResourceEvent(event.ResourceExpired, resourceID(snap, name), actor,
		map[string]any{"previous_holder": snap.Holder.Actor}, event.Options{})
	if err != nil {
		return nil, err
	}
	next, err := Apply(snap, e)
	if err != nil {
		return nil, err
	}
	if err := writeEventAndSnapshot(root, name, e, next); err != nil {
		return nil, err
	}
	return next, nil
}

func resourceID(snap *Snapshot, name string) string {
	if snap != nil && snap.ID != "" {
		return snap.ID
	}
	return ids.New(ids.PrefixResource)
}

// Acquire attempts to take exclusive ownership of a named resource. If the
// resource is currently held by another actor and not expired, Acquire
// fails unless wait or force is set: wait polls with bounded backoff until
// the deadline; force evicts the current holder by writing
// resource_expired first.
func Acquire(root, name, actor string, ttl time.Duration, wait bool, waitTimeout time.Duration, force bool) (*Snapshot, error) {
	deadline := time.Now().Add(waitTimeout)
	for {
		snap, err := tryAcquireOnce(root, name, actor, ttl, force)
		if err == nil {
			return snap, nil
		}
		if !errs.OfCode(err, errs.LockTimeout) && wait && time.Now().Before(deadline) {
			time.Sleep(100 * time.Millisecond)
			continue
		}
		return nil, err
	}
}

func tryAcquireOnce(root, name, actor string, ttl time.Duration, force bool) (*Snapshot, error) {
	multi, err := lock.Acquire(root, lockKey(name), 10*time.Second)
	if err != nil {
		return nil, err
	}
	defer func() { _ = multi.Release() }()

	snap, err := readSnapshot(root, name)
	if err != nil {
		return nil, err
	}
	snap, err = expireIfStale(root, name, actor, snap, time.Now())
	if err != nil {
		return nil, err
	}

	if snap != nil && snap.Holder != nil {
		if !force {
			return nil, errs.New(errs.ValidationError, "resource %s is held by %s", name, snap.Holder.Actor)
		}
		evictEvent, err := event.CreateResourceEvent(event.ResourceExpired, resourceID(snap, name), actor,
			map[string]any{"previous_holder": snap.Holder.Actor, "forced": true}, event.Options{})
		if err != nil {
			return nil, err
		}
		snap, err = Apply(snap, evictEvent)
		if err != nil {
			return nil, err
		}
		if err := writeEventAndSnapshot(root, name, evictEvent, snap); err != nil {
			return nil, err
		}
	}

	resID := resourceID(snap, name)
	var events []*event.Event
	if snap == nil {
		created, err := event.CreateResourceEvent(event.ResourceCreated, resID, actor, map[string]any{"name": name}, event.Options{})
		if err != nil {
			return nil, err
		}
		events = append(events, created)
	}
	expiresAt := ""
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).UTC().Format(time.RFC3339)
	}
	acquired, err := event.CreateResourceEvent(event.ResourceAcquired, resID, actor,
		map[string]any{"actor": actor, "expires_at": expiresAt}, event.Options{})
	if err != nil {
		return nil, err
	}
	events = append(events, acquired)

	for _, e := range events {
		snap, err = Apply(snap, e)
		if err != nil {
			return nil, err
		}
		if err := writeEventAndSnapshot(root, name, e, snap); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

// Release relinquishes actor's hold on name. It is a no-op error if actor
// is not the current holder.
func Release(root, name, actor string) (*Snapshot, error) {
	multi, err := lock.Acquire(root, lockKey(name), 10*time.Second)
	if err != nil {
		return nil, err
	}
	defer func() { _ = multi.Release() }()

	snap, err := readSnapshot(root, name)
	if err != nil {
		return nil, err
	}
	if snap == nil || snap.Holder == nil {
		return nil, errs.New(errs.ValidationError, "resource %s is not held", name)
	}
	if snap.Holder.Actor != actor {
		return nil, errs.New(errs.ValidationError, "resource %s is held by %s, not %s", name, snap.Holder.Actor, actor)
	}

	e, err := event.CreateResourceEvent(event.ResourceReleased, resourceID(snap, name), actor, map[string]any{}, event.Options{})
	if err != nil {
		return nil, err
	}
	snap, err = Apply(snap, e)
	if err != nil {
		return nil, err
	}
	if err := writeEventAndSnapshot(root, name, e, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// Heartbeat extends the current holder's TTL.
func Heartbeat(root, name, actor string, ttl time.Duration) (*Snapshot, error) {
	multi, err := lock.Acquire(root, lockKey(name), 10*time.Second)
	if err != nil {
		return nil, err
	}
	defer func() { _ = multi.Release() }()

	snap, err := readSnapshot(root, name)
	if err != nil {
		return nil, err
	}
	if snap == nil || snap.Holder == nil || snap.Holder.Actor != actor {
		return nil, errs.New(errs.ValidationError, "resource %s is not held by %s", name, actor)
	}

	expiresAt := time.Now().Add(ttl).UTC().Format(time.RFC3339)
	e, err := event.CreateResourceEvent(event.ResourceHeartbeat, resourceID(snap, name), actor,
		map[string]any{"expires_at": expiresAt}, event.Options{})
	if err != nil {
		return nil, err
	}
	snap, err = Apply(snap, e)
	if err != nil {
		return nil, err
	}
	if err := writeEventAndSnapshot(root, name, e, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// Status reads a resource's current snapshot, synthesizing an expiry if
// its TTL has elapsed, without acquiring or releasing it.
func Status(root, name, actor string) (*Snapshot, error) {
	multi, err := lock.Acquire(root, lockKey(name), 10*time.Second)
	if err != nil {
		return nil, err
	}
	defer func() { _ = multi.Release() }()

	snap, err := readSnapshot(root, name)
	if err != nil {
		return nil, err
	}
	return expireIfStale(root, name, actor, snap, time.Now())
}
