// Command media is a click action plugin for volume, brightness and media
// playback keys, pressed through robotgo.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-vgo/robotgo"

	"github.com/ayusman/winkmouse/internal/plugin"
)

// actionKeys maps action names to robotgo media key names.
var actionKeys = map[string]string{
	"volume-up":        "audio_vol_up",
	"volume-down":      "audio_vol_down",
	"volume-mute":      "audio_mute",
	"brightness-up":    "lights_mon_up",
	"brightness-down":  "lights_mon_down",
	"media-play-pause": "audio_play",
	"media-next":       "audio_next",
	"media-prev":       "audio_prev",
}

func main() {
	var req plugin.Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(fmt.Errorf("failed to decode request: %w", err))
		return
	}

	key, ok := actionKeys[req.Action]
	if !ok {
		writeResponse(fmt.Errorf("unknown action: %s", req.Action))
		return
	}

	if err := robotgo.KeyTap(key); err != nil {
		writeResponse(fmt.Errorf("action %s failed: %w", req.Action, err))
		return
	}
	writeResponse(nil)
}

func writeResponse(err error) {
	resp := plugin.Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
