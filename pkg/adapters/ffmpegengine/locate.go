package ffmpegengine

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Common installation locations checked after PATH.
var commonDirs = []string{
	"/usr/local/bin",
	"/usr/bin",
	"/opt/homebrew/bin",
	"/opt/local/bin",
}

// FindFFmpeg locates the ffmpeg binary. Search order: the explicit
// custom path, the FFMPEG_PATH environment variable, PATH, then the
// common installation directories.
func FindFFmpeg(customPath string) (string, error) {
	return findBinary("ffmpeg", "FFMPEG_PATH", customPath)
}

// FindFFprobe locates the ffprobe binary with the same search order,
// honoring FFPROBE_PATH.
func FindFFprobe(customPath string) (string, error) {
	return findBinary("ffprobe", "FFPROBE_PATH", customPath)
}

func findBinary(name, envVar, customPath string) (string, error) {
	if customPath != "" {
		if _, err := os.Stat(customPath); err == nil {
			return customPath, nil
		}
		return "", fmt.Errorf("%s not found at %s", name, customPath)
	}

	if envPath := os.Getenv(envVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
	}

	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	for _, dir := range commonDirs {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%s not found in PATH or common locations", name)
}
