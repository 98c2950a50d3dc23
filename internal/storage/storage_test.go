package storage

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/eugenenazirov/mockgov-settings/internal/registry"
	"github.com/eugenenazirov/mockgov-settings/internal/settings"
)

func snapshotFor(t *testing.T, cpr string) *Snapshot {
	t.Helper()

	body := fmt.Sprintf("serviceplatformen.settings.cpr_endpoint = %q\nserviceplatformen.settings.cvr_endpoint = %q\n", cpr, cpr)
	reg, err := registry.Load(registry.Source{Name: "test", Data: []byte(body)})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	s, err := settings.Bind(reg)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	return &Snapshot{Registry: reg, Settings: s, Sources: reg.Sources(), LoadedAt: time.Now()}
}

func TestCurrentBeforeReplace(t *testing.T) {
	t.Parallel()

	store := NewAtomicStorage()
	if _, err := store.Current(); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
	if err := store.Replace(nil); !errors.Is(err, ErrNilSnapshot) {
		t.Fatalf("expected ErrNilSnapshot, got %v", err)
	}
}

func TestReplaceStampsVersions(t *testing.T) {
	t.Parallel()

	store := NewAtomicStorage()
	first := snapshotFor(t, "http://localhost:8081/soap/sf1520")
	if err := store.Replace(first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second := snapshotFor(t, "http://mock:8081/soap/sf1520")
	if err := store.Replace(second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := store.Current()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != second {
		t.Fatalf("expected second snapshot to be current")
	}
	if first.Version != 1 || second.Version != 2 {
		t.Fatalf("unexpected versions %d, %d", first.Version, second.Version)
	}
}

func TestReplaceDetachesSources(t *testing.T) {
	t.Parallel()

	sources := []string{"a.conf"}
	store := NewAtomicStorage()
	if err := store.Replace(&Snapshot{Registry: registry.Empty(), Sources: sources}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sources[0] = "mutated"

	got, _ := store.Current()
	if got.Sources[0] != "a.conf" {
		t.Fatalf("expected stored sources to be detached, got %v", got.Sources)
	}
}

// Readers must see the CPR and CVR endpoints of the same snapshot.
func TestConcurrentReplaceIsAtomic(t *testing.T) {
	store := NewAtomicStorage()
	if err := store.Replace(snapshotFor(t, "http://host-0:8081/soap")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snaps := make([]*Snapshot, 16)
	for i := range snaps {
		snaps[i] = snapshotFor(t, fmt.Sprintf("http://host-%d:8081/soap", i+1))
	}

	var wg sync.WaitGroup
	for i := range snaps {
		wg.Add(2)

		go func(snap *Snapshot) {
			defer wg.Done()
			if err := store.Replace(snap); err != nil {
				t.Errorf("Replace failed: %v", err)
			}
		}(snaps[i])

		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				snap, err := store.Current()
				if err != nil {
					t.Errorf("Current failed: %v", err)
					return
				}
				sp := snap.Settings.Serviceplatformen
				if sp.CPREndpoint != sp.CVREndpoint {
					t.Errorf("torn snapshot: %s vs %s", sp.CPREndpoint, sp.CVREndpoint)
					return
				}
				cpr, err := snap.Registry.Lookup("serviceplatformen.settings.cpr_endpoint")
				if err != nil {
					t.Errorf("lookup failed: %v", err)
					return
				}
				if s, _ := cpr.AsString(); s != sp.CPREndpoint {
					t.Errorf("registry and settings disagree: %s vs %s", s, sp.CPREndpoint)
					return
				}
			}
		}()
	}

	wg.Wait()

	final, err := store.Current()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if final.Version != uint64(len(snaps)+1) {
		t.Fatalf("expected version %d, got %d", len(snaps)+1, final.Version)
	}
}
