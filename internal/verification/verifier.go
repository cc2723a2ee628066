// Package verification decides whether one kernel run passed.
// A run passes only if the process terminated cleanly, said nothing on its
// diagnostic stream, printed exactly one decimal integer, and that integer
// equals the oracle's value. There are no retries and no tolerance.
package verification

import (
	"kernelcheck/internal/kernel"
	"kernelcheck/internal/logging"

	"go.uber.org/zap"
)

// Outcome is a classified kernel run. invoker.Outcome implements it.
type Outcome interface {
	// Result returns the kernel's parsed primary output, or the taxonomy
	// error that makes the output meaningless.
	Result() (uint64, error)
}

// Verify checks one run of inst against the oracle's expected value.
// Process, diagnostic and format failures are returned as-is without any
// comparison. A wrong value yields a *kernel.MismatchError carrying the
// full input and both results.
func Verify(inst kernel.Instance, expected uint32, outcome Outcome) error {
	log := logging.Get(logging.CategoryVerification)

	actual, err := outcome.Result()
	if err != nil {
		log.Debug("run rejected before comparison",
			zap.String("kind", inst.Kind().String()),
			zap.String("class", kernel.Class(err)),
			zap.Error(err))
		return err
	}

	if actual != uint64(expected) {
		report := kernel.NewMismatchReport(inst, expected, actual)
		log.Debug("result mismatch",
			zap.String("kind", inst.Kind().String()),
			zap.String("expected", kernel.Hex32(expected)),
			zap.String("got", kernel.HexResult(actual)))
		return &kernel.MismatchError{Report: report}
	}

	log.Debug("result verified",
		zap.String("kind", inst.Kind().String()),
		zap.String("value", kernel.Hex32(expected)))
	return nil
}
