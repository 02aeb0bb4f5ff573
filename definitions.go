package emuera

import (
	"github.com/tliron/commonlog"
)

//
// Constants
//

const VERSION = "0.4.0"

const scriptSuffix = ".erb"

const defaultEntry = "SYSTEM_TITLE"

const defaultMaxCallDepth = 512

const defaultDrawLineWidth = 40

const defaultSaveFile = "global.sav"

// Output markers emitted by WAIT and INPUT so hosts without a console
// can see where the script paused.
const (
	MarkWait  = "\x00WAIT"
	MarkInput = "\x00INPUT"
)

// Names the executor reads and writes on its own.
const (
	varResult  = "RESULT"
	varResults = "RESULTS"
	varCount   = "COUNT"
)

//
// Loggers. The library never configures a backend; the command does
//

var (
	log        = commonlog.GetLogger("emuera")
	processLog = commonlog.GetLogger("emuera.process")
	scriptLog  = commonlog.GetLogger("emuera.script")
)
