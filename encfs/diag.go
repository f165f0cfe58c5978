package encfs

import (
	"context"
	"log/slog"
	"strings"
)

// Inspect runs best-effort diagnostic commands against an image file and
// logs their output: the cryptsetup version, the LUKS header dump, and hex
// dumps of a few fixed offsets of the backing file. Failures are logged and
// swallowed; inspection never aborts the main flow.
func Inspect(ctx context.Context, run Runner, imagePath string, log *slog.Logger) {
	if run == nil {
		run = ExecRunner{}
	}
	if log == nil {
		log = slog.Default()
	}

	inspections := [][]string{
		{"cryptsetup", "--version"},
		{"cryptsetup", "luksDump", imagePath},
		{"hexdump", "-Cs", "6", "-n", "2", imagePath},
		{"hexdump", "-Cs", "8", "-n", "8", imagePath},
		{"hexdump", "-Cs", "4006", "-n", "2", imagePath},
		{"hexdump", "-Cs", "4008", "-n", "8", imagePath},
		{"hexdump", "-C", "-n", "300", imagePath},
	}

	for _, ins := range inspections {
		command := strings.Join(ins, " ")
		output, err := run.Output(ctx, ins[0], ins[1:]...)
		if err != nil {
			log.Debug("Inspection command failed",
				slog.String("command", command),
				"err", err)
			continue
		}
		log.Info("Inspection output",
			slog.String("command", command),
			slog.String("output", string(output)))
	}
}
