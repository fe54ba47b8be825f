// +build !debug

package diag

import (
	"log"

	"github.com/fatih/color"
	"go.uber.org/zap"
)

// New returns a module-tagged Logger backed by zap's production config.
// Color output is disabled: production logs are consumed by whatever
// aggregates a compiler driver's output, not a terminal.
func New(module string) *Logger {
	color.NoColor = true
	l, err := zap.NewProduction()
	if err != nil {
		log.Fatal("diag: cannot create logger: ", err)
	}
	return &Logger{SugaredLogger: l.Sugar(), module: module}
}
