// +build debug

package diag

import (
	"log"

	"go.uber.org/zap"
)

// New returns a module-tagged Logger backed by zap's development config
// (human-readable, caller-annotated, debug level enabled).
func New(module string) *Logger {
	l, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal("diag: cannot create logger: ", err)
	}
	return &Logger{SugaredLogger: l.Sugar(), module: module}
}
