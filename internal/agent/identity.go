package agent

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	appLogger "github.com/4Noyis/device-fleet-monitoring/internal/logger"
)

const (
	clientIDFile   = "client_id.dat"
	customNameFile = "custom_name.dat"

	maxCustomNameRunes = 100
)

// LoadOrCreateClientID returns the id stored in stateDir, generating and
// persisting a new UUIDv4 when the file is missing or unusable.
func LoadOrCreateClientID(stateDir string) (string, error) {
	path := filepath.Join(stateDir, clientIDFile)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		id := strings.TrimSpace(string(data))
		if parsed, perr := uuid.Parse(id); perr == nil && parsed.Version() == 4 {
			return parsed.String(), nil
		}
		appLogger.Warn("Ignoring invalid client id in %s", path)
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("read client id: %w", err)
	}

	id := uuid.NewString()
	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		return "", fmt.Errorf("create state dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write client id: %w", err)
	}
	appLogger.Info("Generated new client id %s", id)
	return id, nil
}

// LoadCustomName returns the operator-supplied display name in stateDir, or
// "" when there is none.
func LoadCustomName(stateDir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(stateDir, customNameFile))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read custom name: %w", err)
	}

	name := []rune(strings.TrimSpace(string(data)))
	if len(name) > maxCustomNameRunes {
		name = name[:maxCustomNameRunes]
	}
	return string(name), nil
}
