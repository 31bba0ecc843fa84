package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"contentops/internal/output"
	"contentops/internal/submission"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func truncate(value string, limit int) string {
	value = strings.Join(strings.Fields(value), " ")
	if limit <= 0 || len(value) <= limit {
		return value
	}
	return value[:limit-1] + "…"
}

// readTextArg returns value, or the contents of the file it names when it
// starts with '@'. "@-" reads stdin.
func readTextArg(cmd *cobra.Command, value string) (string, error) {
	if !strings.HasPrefix(value, "@") {
		return value, nil
	}
	path := strings.TrimPrefix(value, "@")
	if path == "-" {
		raw, err := io.ReadAll(cmd.InOrStdin())
		return string(raw), err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(raw), nil
}

// flagOptions converts --skip flags into opt-out submission flags.
func flagOptions(skip []string) (submission.FlagOptions, error) {
	var opts submission.FlagOptions
	off := func() *bool { v := false; return &v }
	for _, raw := range skip {
		kind, ok := output.ParseKind(raw)
		if !ok {
			return opts, fmt.Errorf("unknown media type %q", raw)
		}
		switch kind {
		case output.KindAudio:
			opts.Audio = off()
		case output.KindPodcast:
			opts.Podcast = off()
		case output.KindVideo:
			opts.Video = off()
		case output.KindQuiz:
			opts.Quiz = off()
		case output.KindInteractivePodcast:
			opts.InteractivePodcast = off()
		}
	}
	return opts, nil
}

func itoa(v int) string {
	return strconv.Itoa(v)
}
