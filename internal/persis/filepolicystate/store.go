package filepolicystate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nbsynth/nbsynth/internal/cmn/fileutil"
	"github.com/nbsynth/nbsynth/internal/core"
)

// Store manages per-policy state files.
// Each policy/client pair gets its own JSON file at {dir}/{policy}_{client}.json.
// The previous content is kept at {dir}/{policy}_{client}.json-old.
type Store struct {
	dir string
}

// New creates a Store that persists state files in dir.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the state file of a policy.
func (s *Store) Path(p *core.Policy) string {
	return filepath.Join(s.dir, fileutil.SafeName(p.StateKey())+".json")
}

// Load reads the state of a policy. A missing or empty file yields the state
// of a policy that has never run. A file that cannot be decoded returns
// core.ErrCorruptState. The configuration fields of the returned state are
// refreshed from p.
func (s *Store) Load(_ context.Context, p *core.Policy) (*core.PolicyState, error) {
	filePath := s.Path(p)

	data, err := os.ReadFile(filePath) //nolint:gosec // path derived from internal config
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return core.NewPolicyState(p), nil
		}
		return nil, fmt.Errorf("%w: failed to read %s: %w", core.ErrPersistence, filePath, err)
	}
	if len(data) == 0 {
		return core.NewPolicyState(p), nil
	}

	var st core.PolicyState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrCorruptState, filePath, err)
	}
	if st.PolicyName != p.PolicyName || st.ClientName != p.ClientName {
		return nil, fmt.Errorf("%w: %s belongs to %s/%s", core.ErrCorruptState, filePath, st.PolicyName, st.ClientName)
	}
	if st.SynthsRemaining < 0 || st.FailureCount < 0 {
		return nil, fmt.Errorf("%w: %s: negative counter", core.ErrCorruptState, filePath)
	}

	st.ApplyPolicy(p)
	return &st, nil
}

// Save durably writes the state. The file is replaced atomically and the
// previous version is kept as a backup. Every error wraps core.ErrPersistence.
func (s *Store) Save(_ context.Context, st *core.PolicyState) error {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("%w: failed to create state directory: %w", core.ErrPersistence, err)
	}

	data, err := Encode(st)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrPersistence, err)
	}

	filePath := filepath.Join(s.dir, fileutil.SafeName(core.StateKey(st.PolicyName, st.ClientName))+".json")
	if err := fileutil.WriteFileWithBackup(filePath, data, 0o600); err != nil {
		return fmt.Errorf("%w: failed to write %s: %w", core.ErrPersistence, filePath, err)
	}
	return nil
}

// Encode returns the on-disk representation of a state record: indented
// JSON followed by a newline. Equal states always encode to equal bytes.
func Encode(st *core.PolicyState) ([]byte, error) {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	return append(data, '\n'), nil
}
