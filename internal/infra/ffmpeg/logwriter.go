package ffmpeg

import (
	"bufio"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// pipeLines logs every line read from r at the given level until r is drained.
func pipeLines(r io.Reader, logger *zap.Logger, level zapcore.Level) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if ce := logger.Check(level, sc.Text()); ce != nil {
			ce.Write()
		}
	}
}
