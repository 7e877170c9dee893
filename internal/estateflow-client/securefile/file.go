// Package securefile writes local state files atomically and resolves where they live.
package securefile

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

// EnvVar selects an optional config subfolder (local/ or develop/).
const EnvVar = "ESTATEFLOW_ENV"

// AtomicWriteFile writes data to a temp file next to path and renames it into place.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	_ = os.Remove(tmp)

	if err := os.WriteFile(tmp, data, perm); err != nil {
		return errors.Wrap(err, "write tmp")
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "rename")
	}
	return nil
}

// WriteFile creates the parent directory with dirPerm, then writes data atomically.
func WriteFile(path string, data []byte, filePerm, dirPerm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return errors.Wrapf(err, "mkdir %s", dir)
	}
	return AtomicWriteFile(path, data, filePerm)
}

func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ResolvePath picks the first existing candidate, else the first candidate.
func ResolvePath(app, filename string) (string, error) {
	cands, err := ConfigPathCandidates(app, filename)
	if err != nil {
		return "", err
	}
	for _, p := range cands {
		if Exists(p) {
			return p, nil
		}
	}
	return cands[0], nil
}

// ConfigPathCandidates returns paths to try, in priority order:
// $SNAP_REAL_HOME/.config/<app>, $HOME/.config/<app>, then <UserConfigDir>/<app>,
// each with the ESTATEFLOW_ENV subfolder when set.
func ConfigPathCandidates(app, filename string) ([]string, error) {
	envFolder, err := EnvFolder()
	if err != nil {
		return nil, err
	}
	return candidatesFor(app, filename, envFolder)
}

func candidatesFor(app, filename, envFolder string) ([]string, error) {
	if app == "" || filename == "" {
		return nil, errors.New("app and filename must not be empty")
	}

	var roots []string
	for _, home := range []string{os.Getenv("SNAP_REAL_HOME"), os.Getenv("HOME")} {
		if home != "" {
			roots = append(roots, filepath.Join(home, ".config"))
		}
	}
	userDir, userErr := os.UserConfigDir()
	if userErr == nil {
		roots = append(roots, userDir)
	}
	if len(roots) == 0 {
		return nil, errors.Wrap(userErr, "no home or user config dir")
	}

	seen := make(map[string]bool, len(roots))
	paths := make([]string, 0, len(roots))
	for _, root := range roots {
		p := filepath.Join(root, app, envFolder, filename)
		if seen[p] {
			continue
		}
		seen[p] = true
		paths = append(paths, p)
	}
	return paths, nil
}

// EnvFolder maps ESTATEFLOW_ENV to a subfolder name; production uses none.
func EnvFolder() (string, error) {
	raw := strings.TrimSpace(os.Getenv(EnvVar))
	switch strings.ToLower(raw) {
	case "", "prod", "production":
		return "", nil
	case "local":
		return "local", nil
	case "dev", "develop", "development":
		return "develop", nil
	default:
		return "", errors.Newf("invalid %s %q (allowed: local, develop, empty)", EnvVar, raw)
	}
}
