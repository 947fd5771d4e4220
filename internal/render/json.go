package render

import (
	"encoding/json"
	"fmt"

	"github.com/zzhiyuann/vibe-replay/internal/replay"
)

// JSON renders the full session data as an indented JSON document with
// the replay and raw events side by side.
func JSON(r *replay.SessionReplay, events []replay.Event) (string, error) {
	if events == nil {
		events = []replay.Event{}
	}
	data, err := json.MarshalIndent(map[string]any{
		"replay": r,
		"events": events,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode export: %w", err)
	}
	return string(data), nil
}
