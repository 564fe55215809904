// Command keyboard is a click action plugin that presses keys and shortcuts
// through robotgo.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-vgo/robotgo"

	"github.com/ayusman/winkmouse/internal/plugin"
)

// KeystrokeParams defines parameters for keystroke and shortcut actions.
type KeystrokeParams struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"` // cmd, alt, ctrl, shift
}

// modifierMap maps user-friendly modifier names to robotgo key names.
var modifierMap = map[string]string{
	"command": "cmd",
	"cmd":     "cmd",
	"option":  "alt",
	"alt":     "alt",
	"control": "ctrl",
	"ctrl":    "ctrl",
	"shift":   "shift",
}

func main() {
	var req plugin.Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(fmt.Errorf("failed to decode request: %w", err))
		return
	}

	switch req.Action {
	case "keystroke", "shortcut":
		writeResponse(handleKeystroke(req.Params))
	default:
		writeResponse(fmt.Errorf("unknown action: %s", req.Action))
	}
}

func handleKeystroke(params json.RawMessage) error {
	var p KeystrokeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return fmt.Errorf("failed to parse params: %w", err)
	}

	key, mods, err := resolve(p)
	if err != nil {
		return err
	}

	args := make([]interface{}, len(mods))
	for i, m := range mods {
		args[i] = m
	}
	return robotgo.KeyTap(key, args...)
}

// resolve validates the key and maps modifiers, dropping unknown ones.
func resolve(p KeystrokeParams) (string, []string, error) {
	if p.Key == "" {
		return "", nil, errors.New("key is required")
	}

	var mods []string
	for _, m := range p.Modifiers {
		if name, ok := modifierMap[strings.ToLower(m)]; ok {
			mods = append(mods, name)
		}
	}
	return strings.ToLower(p.Key), mods, nil
}

func writeResponse(err error) {
	resp := plugin.Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
