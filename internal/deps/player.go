package deps

import (
	"strings"

	"github.com/mattn/go-shellwords"
)

// PlaybackRequirements returns the binaries needed for local playback: the
// executable of the configured player command and ffprobe.
func PlaybackRequirements(playerCommand, ffprobeBinary string) []Requirement {
	return []Requirement{
		{
			Name:        "Player",
			Command:     commandBinary(playerCommand),
			Description: "Plays generated podcasts",
			Hint:        "install ffmpeg or set playback.player_command",
		},
		{
			Name:        "FFprobe",
			Command:     strings.TrimSpace(ffprobeBinary),
			Description: "Reads podcast duration before playback",
			Hint:        "install ffmpeg or set playback.ffprobe_binary",
		},
	}
}

// commandBinary returns the executable of a shell-quoted command line, or ""
// when the command cannot be parsed.
func commandBinary(command string) string {
	args, err := shellwords.Parse(strings.TrimSpace(command))
	if err != nil || len(args) == 0 {
		return ""
	}
	return args[0]
}
