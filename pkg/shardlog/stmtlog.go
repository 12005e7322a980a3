package shardlog

import "time"

type StmtStage string

const (
	StmtStageRoute   = StmtStage("ROUTE")
	StmtStageRewrite = StmtStage("REWRITE")
	StmtStageExecute = StmtStage("EXECUTE")
	StmtStageMerge   = StmtStage("MERGE")
	StmtStageTotal   = StmtStage("TOTAL")
)

// StmtLogger reports pipeline stages slower than a configured threshold.
// A negative threshold disables reporting.
type StmtLogger struct {
	logMinDurationStatement time.Duration
}

func NewStmtLogger(logMinDurationStatement time.Duration) *StmtLogger {
	return &StmtLogger{
		logMinDurationStatement: logMinDurationStatement,
	}
}

func (s *StmtLogger) shouldLogStatement(t time.Duration) bool {
	return s.logMinDurationStatement >= 0 && t > s.logMinDurationStatement
}

func (s *StmtLogger) ReportStatement(stage StmtStage, stmt string, t time.Duration) {
	if s == nil {
		return
	}
	if s.shouldLogStatement(t) {
		Zero.Info().Str("stmt", stmt).Str("stage", string(stage)).Dur("duration", t).Msg("slow statement stage")
	}
}
