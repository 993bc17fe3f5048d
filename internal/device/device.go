package device

import (
	"context"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"clockout.agent/internal/ports/repository"
)

const deviceIDKey = "device_id"

// machineIDFiles are consulted in order for a stable host identity.
var machineIDFiles = []string{"/etc/machine-id", "/var/lib/dbus/machine-id"}

// Resolve returns this install's stable device identifier. Preference
// order: the provisioned override, the id persisted by a previous run,
// the host machine id, and finally a generated UUID. Whatever wins is
// persisted so the id survives reprovisioning of everything but the
// database file.
func Resolve(ctx context.Context, override string, state repository.StateStore) (string, error) {
	if override != "" {
		return override, nil
	}

	stored, err := state.GetState(ctx, deviceIDKey)
	if err != nil {
		return "", err
	}
	if stored != "" {
		return stored, nil
	}

	id := machineID()
	if id == "" {
		id = uuid.NewString()
		log.Ctx(ctx).Info().Str("deviceId", id).Msg("No machine id found, generated device id")
	}

	if err := state.SetState(ctx, deviceIDKey, id); err != nil {
		return "", err
	}
	return id, nil
}

func machineID() string {
	for _, path := range machineIDFiles {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if id := strings.TrimSpace(string(raw)); id != "" {
			return id
		}
	}
	return ""
}
