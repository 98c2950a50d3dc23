package reload

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/eugenenazirov/mockgov-settings/internal/registry"
	"github.com/eugenenazirov/mockgov-settings/internal/settings"
	"github.com/eugenenazirov/mockgov-settings/internal/storage"
)

// ErrNoSources is returned when a Loader has no files to read.
var ErrNoSources = errors.New("no override sources configured")

// Loader builds snapshots from files: the built-in defaults, then Base, then
// each override in order, later layers winning. Files are read from Fs, the
// OS filesystem when nil. Only the OS filesystem can be watched.
type Loader struct {
	Base         string
	Overrides    []string
	Provider     string
	SecretSource settings.SecretSource
	Fs           afero.Fs

	clock func() time.Time
}

// Files lists the sources in application order.
func (l Loader) Files() []string {
	files := make([]string, 0, len(l.Overrides)+1)
	if strings.TrimSpace(l.Base) != "" {
		files = append(files, l.Base)
	}
	for _, path := range l.Overrides {
		if strings.TrimSpace(path) != "" {
			files = append(files, path)
		}
	}
	return files
}

// Build loads, merges and binds every source. It never touches a store, so a
// failed build leaves the active configuration alone.
func (l Loader) Build() (*storage.Snapshot, error) {
	files := l.Files()
	if len(files) == 0 {
		return nil, ErrNoSources
	}

	layers := make([]*registry.Registry, 0, len(files)+1)
	layers = append(layers, settings.Defaults())
	fsys := l.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	for _, path := range files {
		src, err := registry.SourceFromFs(fsys, path)
		if err != nil {
			return nil, err
		}
		reg, err := registry.Load(src)
		if err != nil {
			return nil, err
		}
		layers = append(layers, reg)
	}
	merged := registry.OverlayAll(layers...)
	if err := registry.Validate(merged); err != nil {
		return nil, err
	}

	opts := []settings.Option{settings.WithProvider(l.Provider)}
	if l.SecretSource != nil {
		opts = append(opts, settings.WithSecretSource(l.SecretSource))
	}
	bound, err := settings.Bind(merged, opts...)
	if err != nil {
		return nil, fmt.Errorf("bind settings: %w", err)
	}

	now := time.Now().UTC()
	if l.clock != nil {
		now = l.clock()
	}
	return &storage.Snapshot{
		Registry: merged,
		Settings: bound,
		Sources:  merged.Sources(),
		LoadedAt: now,
	}, nil
}
