// Package domain defines the core domain models for the engine.
package domain

import "time"

// RunStatus represents the status of a pipeline run.
type RunStatus string

const (
	RunStatusStarted      RunStatus = "STARTED"
	RunStatusAnalyzing    RunStatus = "ANALYZING"
	RunStatusPredicting   RunStatus = "PREDICTING"
	RunStatusSkippedNoORF RunStatus = "SKIPPED_NO_ORF"
	RunStatusEnriching    RunStatus = "ENRICHING"
	RunStatusVisualizing  RunStatus = "VISUALIZING"
	RunStatusReporting    RunStatus = "REPORTING"
	RunStatusCompleted    RunStatus = "COMPLETED"
	RunStatusFailed       RunStatus = "FAILED"
)

// IsTerminal reports whether the status is a terminal run state.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// AnonymousUser is the owner recorded for sessions created without a user id.
const AnonymousUser = "anonymous"

// Message is a single entry in a session's conversation history.
// Messages are append-only; once stored they are never mutated.
type Message struct {
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	CreatedAt time.Time         `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Session is a conversation session with history and per-session context.
type Session struct {
	SessionID    string         `json:"session_id"`
	UserID       string         `json:"user_id"`
	CreatedAt    time.Time      `json:"created_at"`
	LastAccessed time.Time      `json:"last_accessed"`
	Messages     []Message      `json:"messages"`
	Context      map[string]any `json:"context"`
	Active       bool           `json:"active"`
}

// Touch advances the last-access timestamp. The timestamp never moves
// backwards, even under clock skew between writers.
func (s *Session) Touch(now time.Time) {
	if now.After(s.LastAccessed) {
		s.LastAccessed = now
	}
}

// AddMessage appends a message to the session history and touches the session.
func (s *Session) AddMessage(role, content string, metadata map[string]string) {
	now := time.Now()
	s.Messages = append(s.Messages, Message{
		Role:      role,
		Content:   content,
		CreatedAt: now,
		Metadata:  metadata,
	})
	s.Touch(now)
}

// RecentMessages returns up to n most recent messages in chronological order.
func (s *Session) RecentMessages(n int) []Message {
	if n <= 0 || len(s.Messages) <= n {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}

// SessionStats is an aggregate view over all active sessions.
type SessionStats struct {
	TotalSessions         int     `json:"total_sessions"`
	ActiveToday           int     `json:"active_today"`
	TotalMessages         int     `json:"total_messages"`
	AvgMessagesPerSession float64 `json:"avg_messages_per_session"`
}

// ORF is an open reading frame on the forward strand.
type ORF struct {
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Frame    int    `json:"frame"`
	Length   int    `json:"length"`
	Sequence string `json:"sequence"`
}

// MotifHit is a regulatory motif match at a 0-based position.
type MotifHit struct {
	Name     string `json:"name"`
	Position int    `json:"position"`
	Match    string `json:"match"`
}

// AnalysisResult holds the outcome of a sequence analysis. It is produced
// fresh on every call and never mutated afterwards.
type AnalysisResult struct {
	Valid        bool       `json:"valid"`
	SequenceType string     `json:"sequence_type"`
	Length       int        `json:"length"`
	GCPercent    float64    `json:"gc_percent"`
	ORFs         []ORF      `json:"orfs"`
	Motifs       []MotifHit `json:"motifs"`
	Sequence     string     `json:"sequence"`
}

// ProteinProfile holds predicted properties for a translated ORF.
type ProteinProfile struct {
	ORFID           string  `json:"orf_id"`
	Residues        string  `json:"residues"`
	Length          int     `json:"length"`
	MolecularWeight float64 `json:"molecular_weight"`
	Hydrophobicity  float64 `json:"hydrophobicity"`
	SignalPeptide   bool    `json:"signal_peptide"`
}

// ComparisonResult is the outcome of a pairwise sequence alignment.
type ComparisonResult struct {
	AlignedA   string  `json:"aligned_a"`
	Markers    string  `json:"markers"`
	AlignedB   string  `json:"aligned_b"`
	Score      int     `json:"score"`
	Identity   float64 `json:"identity"`
	Similarity float64 `json:"similarity"`
	Homology   string  `json:"homology"`
}

// ExecutionRecord is the accounting record for a single stage execution.
// A record is immutable once finalized.
type ExecutionRecord struct {
	Stage           string    `json:"stage"`
	ExecutionID     string    `json:"execution_id"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	DurationSeconds float64   `json:"duration_seconds"`
	TokensIn        int       `json:"tokens_in"`
	TokensOut       int       `json:"tokens_out"`
	TokensTotal     int       `json:"tokens_total"`
	Model           string    `json:"model"`
	CostUSD         float64   `json:"cost_usd"`
	Success         bool      `json:"success"`
	Error           string    `json:"error,omitempty"`
	ToolCalls       []string  `json:"tool_calls,omitempty"`
}

// StageStats aggregates execution records for one stage.
type StageStats struct {
	Count              int     `json:"count"`
	Successful         int     `json:"successful"`
	Failed             int     `json:"failed"`
	TotalTokens        int     `json:"total_tokens"`
	TotalCostUSD       float64 `json:"total_cost_usd"`
	AvgDurationSeconds float64 `json:"avg_duration_seconds"`
}

// MetricsSummary is a read-side aggregate over finalized execution records.
type MetricsSummary struct {
	WindowHours        float64               `json:"window_hours,omitempty"`
	TotalExecutions    int                   `json:"total_executions"`
	Successful         int                   `json:"successful"`
	Failed             int                   `json:"failed"`
	SuccessRate        float64               `json:"success_rate"`
	TotalTokens        int                   `json:"total_tokens"`
	TotalCostUSD       float64               `json:"total_cost_usd"`
	AvgDurationSeconds float64               `json:"avg_duration_seconds"`
	ByStage            map[string]StageStats `json:"by_stage"`
}

// Paper is a single literature search hit.
type Paper struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Authors  []string `json:"authors"`
	Year     int      `json:"year"`
	Abstract string   `json:"abstract"`
}

// LiteratureResult is the outcome of a literature search.
type LiteratureResult struct {
	TotalResults int     `json:"total_results"`
	Papers       []Paper `json:"papers"`
}

// Artifact is a rendered plot or figure produced by the visualization
// collaborator.
type Artifact struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Format string `json:"format"`
}

// ReportInfo describes a generated report document.
type ReportInfo struct {
	Path          string `json:"path"`
	PageCount     int    `json:"page_count"`
	FileSizeBytes int64  `json:"file_size_bytes"`
}

// StageFailure is the stable failure shape crossing the core boundary.
type StageFailure struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// PipelineResult bundles everything a completed (or failed) run produced.
type PipelineResult struct {
	RunID           string            `json:"run_id"`
	SessionID       string            `json:"session_id"`
	Status          RunStatus         `json:"status"`
	Analysis        *AnalysisResult   `json:"analysis,omitempty"`
	Proteins        []ProteinProfile  `json:"proteins,omitempty"`
	Comparison      *ComparisonResult `json:"comparison,omitempty"`
	Literature      *LiteratureResult `json:"literature,omitempty"`
	Hypotheses      string            `json:"hypotheses,omitempty"`
	Plots           []Artifact        `json:"plots,omitempty"`
	Report          *ReportInfo       `json:"report,omitempty"`
	Attempts        map[string]int    `json:"attempts,omitempty"`
	Failure         *StageFailure     `json:"failure,omitempty"`
	StartedAt       time.Time         `json:"started_at"`
	DurationSeconds float64           `json:"duration_seconds"`
}

// Routing kinds.
const (
	RouteKindAnalysis       = "analysis"
	RouteKindConversational = "conversational"
)

// RoutedResult is the tagged result of routing one inbound message.
type RoutedResult struct {
	Success   bool            `json:"success"`
	SessionID string          `json:"session_id"`
	Kind      string          `json:"kind"`
	Response  string          `json:"response,omitempty"`
	Pipeline  *PipelineResult `json:"pipeline,omitempty"`
	Failure   *StageFailure   `json:"failure,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
