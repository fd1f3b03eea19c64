package misc

import "github.com/BrugadaSyndrome/bslogger"

const (
	Fatal Severity = iota
	Error
	Warning
)

// Severity picks the log level CheckError reports at
type Severity int

// Nothing is the empty request/reply value for rpc methods that carry no data
type Nothing struct{}

// CheckError logs err at severity and reports whether there was one. Fatal
// exits the process.
func CheckError(err error, logger bslogger.Logger, severity Severity) bool {
	if err == nil {
		return false
	}
	switch severity {
	case Error:
		logger.Error(err.Error())
	case Warning:
		logger.Warning(err.Error())
	default:
		logger.Fatal(err.Error())
	}
	return true
}
