package arena

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"plato-wp36.eu/testbench/db/bolt"
	"plato-wp36.eu/testbench/lightcurve"
)

const sidecarBucket = "sidecar"

// ArchiveBackend persists artifacts as a data file plus a `key=value`
// metadata side-car under BaseDir, per spec's on-disk artifact format. A
// local bbolt database caches each side-car's parsed contents so repeated
// Get calls against the same artifact within one TaskList skip the
// side-car read.
type ArchiveBackend struct {
	BaseDir string
	Binary  bool
	Gzipped bool
	cache   *bolt.DB
}

// NewArchiveBackend opens (creating if necessary) the bbolt cache database
// at cachePath and returns an ArchiveBackend rooted at baseDir.
func NewArchiveBackend(baseDir, cachePath string, binary, gzipped bool) (*ArchiveBackend, error) {
	db, err := bolt.Open(cachePath)
	if err != nil {
		return nil, fmt.Errorf("arena: opening sidecar cache: %w", err)
	}
	if err := db.CreateBucket(sidecarBucket); err != nil {
		return nil, fmt.Errorf("arena: preparing sidecar cache bucket: %w", err)
	}
	return &ArchiveBackend{BaseDir: baseDir, Binary: binary, Gzipped: gzipped, cache: db}, nil
}

// Close releases the backend's bbolt cache database.
func (a *ArchiveBackend) Close() error {
	return a.cache.Close()
}

func (a *ArchiveBackend) dataPath(handle Handle) string {
	return filepath.Join(a.BaseDir, handle.Directory, handle.Filename)
}

func (a *ArchiveBackend) Put(handle Handle, product *lightcurve.ArbitraryRaster) error {
	dataPath := a.dataPath(handle)
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o755); err != nil {
		return fmt.Errorf("arena: creating archive directory: %w", err)
	}

	f, err := os.Create(dataPath)
	if err != nil {
		return fmt.Errorf("arena: creating data file: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	var gz *gzip.Writer
	if a.Gzipped {
		gz = gzip.NewWriter(f)
		w = gz
	}

	if a.Binary {
		err = lightcurve.WriteBinary(w, product)
	} else {
		err = lightcurve.WriteText(w, product)
	}
	if err != nil {
		return fmt.Errorf("arena: writing data file: %w", err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return fmt.Errorf("arena: closing gzip writer: %w", err)
		}
	}

	sidecar := sidecarEntries(a.Binary, a.Gzipped, product.Metadata)
	if err := writeSidecar(dataPath+".metadata", sidecar); err != nil {
		return fmt.Errorf("arena: writing sidecar: %w", err)
	}

	return a.cache.PutJSON(sidecarBucket, dataPath, sidecar)
}

func (a *ArchiveBackend) Get(handle Handle) (*lightcurve.ArbitraryRaster, error) {
	dataPath := a.dataPath(handle)

	sidecar := map[string]interface{}{}
	if err := a.cache.GetJSON(sidecarBucket, dataPath, &sidecar); err != nil {
		var readErr error
		sidecar, readErr = readSidecar(dataPath + ".metadata")
		if readErr != nil {
			return nil, fmt.Errorf("arena: reading sidecar: %w", readErr)
		}
		_ = a.cache.PutJSON(sidecarBucket, dataPath, sidecar)
	}

	binary := truthy(sidecar["binary"])
	gzipped := truthy(sidecar["gzipped"])

	f, err := os.Open(dataPath)
	if err != nil {
		return nil, fmt.Errorf("arena: opening data file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if gzipped {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("arena: opening gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	var product *lightcurve.ArbitraryRaster
	if binary {
		product, err = lightcurve.ReadBinary(r)
	} else {
		product, err = lightcurve.ReadText(r)
	}
	if err != nil {
		return nil, fmt.Errorf("arena: reading data file: %w", err)
	}

	product.Metadata = stripFlags(sidecar)
	return product, nil
}

func (a *ArchiveBackend) Remove(handle Handle) error {
	dataPath := a.dataPath(handle)
	if err := os.Remove(dataPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("arena: removing data file: %w", err)
	}
	if err := os.Remove(dataPath + ".metadata"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("arena: removing sidecar: %w", err)
	}
	_ = a.cache.Delete(sidecarBucket, dataPath)
	return nil
}

func sidecarEntries(binary, gzipped bool, metadata map[string]interface{}) map[string]interface{} {
	entries := map[string]interface{}{
		"binary":  boolFlag(binary),
		"gzipped": boolFlag(gzipped),
	}
	for k, v := range metadata {
		entries[k] = v
	}
	return entries
}

func stripFlags(sidecar map[string]interface{}) map[string]interface{} {
	metadata := map[string]interface{}{}
	for k, v := range sidecar {
		if k == "binary" || k == "gzipped" {
			continue
		}
		metadata[k] = v
	}
	return metadata
}

func boolFlag(b bool) int {
	if b {
		return 1
	}
	return 0
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case float64:
		return t != 0
	case int:
		return t != 0
	case string:
		return t == "1"
	default:
		return false
	}
}

// writeSidecar renders entries as `key=value` lines, one per line, in a
// deterministic key order so the file is stable across repeated writes of
// the same product.
func writeSidecar(path string, entries map[string]interface{}) error {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "%s=%v\n", k, entries[k]); err != nil {
			return err
		}
	}
	return w.Flush()
}

// readSidecar parses a `key=value` side-car file. Values are parsed as
// float64 when possible, otherwise kept as strings.
func readSidecar(path string) (map[string]interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries := map[string]interface{}{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key, rawValue := parts[0], parts[1]
		if f, err := strconv.ParseFloat(rawValue, 64); err == nil {
			entries[key] = f
		} else {
			entries[key] = rawValue
		}
	}
	return entries, scanner.Err()
}
