package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"vote-ledger/models"
)

const (
	snapshotPattern = "ledger_chain_*.json"
	snapshotLayout  = "20060102150405" // YYYYMMDDhhmmss
)

// Archive writes timestamped snapshots of the chain and keeps the newest few.
type Archive struct {
	dataDir string
	keep    int
	mutex   sync.RWMutex
	now     func() time.Time
	log     zerolog.Logger
}

// Add a struct to help with file sorting
type chainFile struct {
	path      string
	timestamp int64
}

type chainFiles []chainFile

func (f chainFiles) Len() int           { return len(f) }
func (f chainFiles) Less(i, j int) bool { return f[i].timestamp < f[j].timestamp }
func (f chainFiles) Swap(i, j int)      { f[i], f[j] = f[j], f[i] }

func NewArchive(dataDir string, keep int, log zerolog.Logger) (*Archive, error) {
	absPath, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if keep < 1 {
		keep = 1
	}
	return &Archive{
		dataDir: absPath,
		keep:    keep,
		now:     time.Now,
		log:     log,
	}, nil
}

func (s *Archive) listFiles() (chainFiles, error) {
	files, err := filepath.Glob(filepath.Join(s.dataDir, snapshotPattern))
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	var result chainFiles
	for _, file := range files {
		// Extract timestamp from filename
		base := filepath.Base(file)
		parts := strings.Split(base, "_")
		if len(parts) < 3 {
			continue
		}
		timestamp, err := time.Parse(snapshotLayout, strings.TrimSuffix(parts[2], ".json"))
		if err != nil {
			s.log.Warn().Str("file", base).Err(err).Msg("invalid timestamp in snapshot filename")
			continue
		}
		result = append(result, chainFile{path: file, timestamp: timestamp.Unix()})
	}
	sort.Sort(result)
	return result, nil
}

// SaveSnapshot writes the chain and returns the snapshot path.
func (s *Archive) SaveSnapshot(chain []models.Block) (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if len(chain) == 0 {
		return "", fmt.Errorf("cannot save empty chain")
	}

	filename := filepath.Join(s.dataDir, fmt.Sprintf("ledger_chain_%s.json", s.now().Format(snapshotLayout)))
	file, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(chain); err != nil {
		return "", fmt.Errorf("failed to encode chain: %w", err)
	}

	if err := s.cleanupOldFiles(); err != nil {
		s.log.Warn().Err(err).Msg("failed to cleanup old snapshots")
	}

	s.log.Debug().Int("blocks", len(chain)).Str("file", filename).Msg("saved chain snapshot")
	return filename, nil
}

// LatestSnapshot loads the newest snapshot. It returns nil, nil when there is none.
func (s *Archive) LatestSnapshot() ([]models.Block, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	files, err := s.listFiles()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	latest := files[len(files)-1].path
	file, err := os.Open(latest)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", latest, err)
	}
	defer file.Close()

	var chain []models.Block
	if err := json.NewDecoder(file).Decode(&chain); err != nil {
		return nil, fmt.Errorf("failed to decode chain from %s: %w", latest, err)
	}
	return chain, nil
}

// Snapshots returns snapshot paths, oldest first.
func (s *Archive) Snapshots() ([]string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	files, err := s.listFiles()
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}
	return paths, nil
}

func (s *Archive) cleanupOldFiles() error {
	files, err := s.listFiles()
	if err != nil {
		return err
	}
	if len(files) <= s.keep {
		return nil
	}

	// Remove older files, keeping the most recent ones
	for i := 0; i < len(files)-s.keep; i++ {
		if err := os.Remove(files[i].path); err != nil {
			s.log.Warn().Str("file", files[i].path).Err(err).Msg("failed to remove old snapshot")
		} else {
			s.log.Debug().Str("file", files[i].path).Msg("removed old snapshot")
		}
	}
	return nil
}
