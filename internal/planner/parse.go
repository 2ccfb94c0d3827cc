package planner

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoScenes is returned when the planner output holds no usable scene.
var ErrNoScenes = errors.New("planner returned no scenes")

type ParseOptions struct {
	// StripNumbering removes list markers such as "1.", "2)" or "-" the
	// model was told not to emit. Off by default: lines are kept verbatim.
	StripNumbering bool
}

var listMarker = regexp.MustCompile(`^(?:\d+[.)]|[-*•])\s*`)

// ParseScenes splits newline-delimited planner output into scenes. Lines are
// trimmed and blank lines dropped; order is preserved.
func ParseScenes(text string, opts ParseOptions) ([]string, error) {
	return cleanScenes(strings.Split(text, "\n"), opts)
}

type sceneList struct {
	Scenes []string `json:"scenes" jsonschema_description:"Ordered list of short, independent scene descriptions, one per step."`
}

var sceneListSchema = GenerateSchema[sceneList]()

// ParseJSONScenes decodes a {"scenes": [...]} object and applies the same
// cleanup as ParseScenes.
func ParseJSONScenes(text string, opts ParseOptions) ([]string, error) {
	var list sceneList
	if err := json.Unmarshal([]byte(text), &list); err != nil {
		return nil, fmt.Errorf("failed to parse planner JSON response: %w\nRaw content: %s", err, text)
	}
	return cleanScenes(list.Scenes, opts)
}

func cleanScenes(lines []string, opts ParseOptions) ([]string, error) {
	scenes := make([]string, 0, len(lines))
	for _, line := range lines {
		scene := strings.TrimSpace(line)
		if opts.StripNumbering {
			scene = strings.TrimSpace(listMarker.ReplaceAllString(scene, ""))
		}
		if scene == "" {
			continue
		}
		scenes = append(scenes, scene)
	}
	if len(scenes) == 0 {
		return nil, ErrNoScenes
	}
	return scenes, nil
}
