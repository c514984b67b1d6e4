package engine

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// EngineVersion is compiled into the binary and compared against the
// manifest's Version field on load. A mismatch is fatal: the on-disk
// layout may not be something this build knows how to read.
const EngineVersion = "1.0.0"

const manifestFileName = "MANIFEST"

// SSTableEntry is a manifest record naming one SSTable's pair of files,
// relative to the data directory.
type SSTableEntry struct {
	DataPath  string `toml:"data_path"`
	IndexPath string `toml:"index_path"`
}

// Manifest is the on-disk catalog of the live SSTable set. Exactly one
// exists per data directory.
type Manifest struct {
	Version      string         `toml:"version"`
	LastSequence uint64         `toml:"last_sequence"`
	SSTables     []SSTableEntry `toml:"sstables"`
}

func manifestPath(dataDir string) string {
	return filepath.Join(dataDir, manifestFileName)
}

// loadManifest reads and parses the manifest file in dataDir. A missing
// file is KindNotFound when createIfMissing is false, otherwise a fresh
// empty manifest is synthesized (and not yet persisted — the caller writes
// it once the SSTable set has been built from it).
func loadManifest(dataDir string, createIfMissing bool) (*Manifest, error) {
	path := manifestPath(dataDir)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, newErr("manifest.load", KindIOError, path, err)
		}
		if !createIfMissing {
			return nil, newErr("manifest.load", KindNotFound, path, err)
		}
		return &Manifest{Version: EngineVersion, LastSequence: 0, SSTables: nil}, nil
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, newErr("manifest.load", KindCorruptManifest, path, err)
	}
	if m.Version == "" {
		return nil, newErr("manifest.load", KindCorruptManifest, path, errManifestMissingVersion)
	}
	if m.Version != EngineVersion {
		return nil, newErr("manifest.load", KindVersionMismatch, path, nil)
	}

	return &m, nil
}

// store writes the full manifest document to dataDir, overwriting whatever
// was there. The manifest on disk always describes a complete set: this
// writes a temp file and renames it into place so a reader never observes a
// partial document.
func (m *Manifest) store(dataDir string) error {
	path := manifestPath(dataDir)

	f, err := os.CreateTemp(dataDir, manifestFileName+".tmp.*")
	if err != nil {
		return newErr("manifest.store", KindIOError, path, err)
	}
	tmpPath := f.Name()
	defer os.Remove(tmpPath)

	enc := toml.NewEncoder(f)
	if err := enc.Encode(m); err != nil {
		f.Close()
		return newErr("manifest.store", KindIOError, path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return newErr("manifest.store", KindIOError, path, err)
	}
	if err := f.Close(); err != nil {
		return newErr("manifest.store", KindIOError, path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return newErr("manifest.store", KindIOError, path, err)
	}
	return nil
}
