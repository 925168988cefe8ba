package arena

import (
	"fmt"

	"plato-wp36.eu/testbench/lightcurve"
)

// Arena is the per-worker product namespace dispatching each operation to
// the memory or archive backend named by the handle's Source.
type Arena struct {
	Memory  *MemoryBackend
	Archive *ArchiveBackend
}

// New wires a memory backend unconditionally; archive may be nil when the
// worker never touches persistent artifacts.
func New(archive *ArchiveBackend) *Arena {
	return &Arena{Memory: NewMemoryBackend(), Archive: archive}
}

func (a *Arena) Put(handle Handle, product *lightcurve.ArbitraryRaster) error {
	if err := handle.validate(); err != nil {
		return err
	}
	switch handle.Source {
	case SourceMemory:
		return a.Memory.Put(handle, product)
	case SourceArchive:
		if a.Archive == nil {
			return fmt.Errorf("arena: no archive backend configured")
		}
		return a.Archive.Put(handle, product)
	default:
		return fmt.Errorf("arena: unknown handle source %q", handle.Source)
	}
}

func (a *Arena) Get(handle Handle) (*lightcurve.ArbitraryRaster, error) {
	if err := handle.validate(); err != nil {
		return nil, err
	}
	switch handle.Source {
	case SourceMemory:
		return a.Memory.Get(handle)
	case SourceArchive:
		if a.Archive == nil {
			return nil, fmt.Errorf("arena: no archive backend configured")
		}
		return a.Archive.Get(handle)
	default:
		return nil, fmt.Errorf("arena: unknown handle source %q", handle.Source)
	}
}

func (a *Arena) Remove(handle Handle) error {
	if err := handle.validate(); err != nil {
		return err
	}
	switch handle.Source {
	case SourceMemory:
		return a.Memory.Remove(handle)
	case SourceArchive:
		if a.Archive == nil {
			return fmt.Errorf("arena: no archive backend configured")
		}
		return a.Archive.Remove(handle)
	default:
		return fmt.Errorf("arena: unknown handle source %q", handle.Source)
	}
}
