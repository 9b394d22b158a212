package registry

import (
	"fmt"
	"strings"

	"geminid/pkg/types"
)

// Load builds the permitted-model registry from the configured id list.
// IDs are trimmed, deduplicated and keep their configured order. The default
// model is appended when it is not already listed, so a config that only sets
// default_model still yields a usable registry.
func Load(ids []string, defaultModel string) ([]types.Model, error) {
	seen := make(map[string]bool, len(ids))
	var models []types.Model
	add := func(id string) {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		models = append(models, types.Model{ID: id, Name: id, Default: id == defaultModel})
	}
	for _, id := range ids {
		add(id)
	}
	if strings.TrimSpace(defaultModel) != "" {
		add(defaultModel)
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("no models configured")
	}
	return models, nil
}

// Contains reports whether the registry permits the given model id.
func Contains(models []types.Model, id string) bool {
	for _, m := range models {
		if m.ID == id {
			return true
		}
	}
	return false
}
