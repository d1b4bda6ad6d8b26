package object

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// VerifyReport summarizes a store integrity check.
type VerifyReport struct {
	Objects int
	ByType  map[ObjectType]int
}

// Verify walks every loose object, checking that it decompresses, decodes
// and hashes back to its own path. The first failure is returned wrapped in
// ErrCorrupt.
func (s *Store) Verify() (*VerifyReport, error) {
	report := &VerifyReport{ByType: make(map[ObjectType]int)}

	fanouts, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return report, nil
		}
		return nil, fmt.Errorf("verify: %w: %w", ErrIO, err)
	}
	sort.Slice(fanouts, func(i, j int) bool { return fanouts[i].Name() < fanouts[j].Name() })

	for _, fan := range fanouts {
		if !fan.IsDir() || len(fan.Name()) != 2 {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(s.root, fan.Name()))
		if err != nil {
			return nil, fmt.Errorf("verify: %w: %w", ErrIO, err)
		}
		for _, e := range entries {
			if e.IsDir() || strings.HasPrefix(e.Name(), ".tmp-") {
				continue
			}
			h, err := ParseHash(fan.Name() + e.Name())
			if err != nil {
				return nil, fmt.Errorf("verify: %w: stray file %s/%s", ErrCorrupt, fan.Name(), e.Name())
			}
			objType, data, err := s.Get(h)
			if err != nil {
				return nil, fmt.Errorf("verify: %w", err)
			}
			if got := HashObject(objType, data); got != h {
				return nil, fmt.Errorf("verify: %w: object %s hashes to %s", ErrCorrupt, h, got)
			}
			report.Objects++
			report.ByType[objType]++
		}
	}
	return report, nil
}
