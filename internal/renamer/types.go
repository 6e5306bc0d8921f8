package renamer

import (
	"path/filepath"
	"time"

	"github.com/slipstream/tvrenamer/internal/library/scanner"
	"github.com/slipstream/tvrenamer/internal/metadata"
)

// RawFile is one input file. DisplayName, when set, is the name to parse
// (for uploads stored under a temporary path); otherwise the base of Path is
// used.
type RawFile struct {
	Path        string `json:"path" yaml:"path"`
	DisplayName string `json:"displayName,omitempty" yaml:"displayName,omitempty"`
}

// Name returns the filename the engine parses.
func (f RawFile) Name() string {
	if f.DisplayName != "" {
		return f.DisplayName
	}
	return filepath.Base(f.Path)
}

// Status is the lifecycle state of a rename operation.
type Status string

const (
	StatusPending    Status = "pending"
	StatusPlanned    Status = "planned"
	StatusConflict   Status = "conflict"
	StatusApplied    Status = "applied"
	StatusFailed     Status = "failed"
	StatusRolledBack Status = "rolled_back"
)

// Reason is a stable machine code explaining why an operation was not
// planned or did not apply.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonUnsupportedFormat  Reason = "unsupported_format"
	ReasonUnrecognizedFormat Reason = "unrecognized_format"
	ReasonAmbiguousShow      Reason = "ambiguous_show"
	ReasonEpisodeNotFound    Reason = "episode_not_found"
	ReasonProviderError      Reason = "provider_error"
	ReasonConflict           Reason = "conflict"
	ReasonTargetExists       Reason = "target_exists"
	ReasonIOFailed           Reason = "io_failed"
	ReasonCancelled          Reason = "cancelled"
)

// Resolved is the outcome of tokenizing, resolving and formatting one file.
// Exactly one of Target and Err is set.
type Resolved struct {
	File       RawFile
	Token      *scanner.ParsedToken
	Resolution *metadata.Resolution
	Target     string
	Err        error
}

// Operation is a single proposed rename and its outcome.
type Operation struct {
	Source      RawFile                  `json:"source" yaml:"source"`
	Target      string                   `json:"target,omitempty" yaml:"target,omitempty"`
	Status      Status                   `json:"status" yaml:"status"`
	Reason      Reason                   `json:"reason,omitempty" yaml:"reason,omitempty"`
	ErrorDetail string                   `json:"errorDetail,omitempty" yaml:"errorDetail,omitempty"`
	Candidates  []metadata.ShowCandidate `json:"candidates,omitempty" yaml:"candidates,omitempty"`
	Token       *scanner.ParsedToken     `json:"token,omitempty" yaml:"token,omitempty"`
	Resolution  *metadata.Resolution     `json:"resolution,omitempty" yaml:"resolution,omitempty"`
	// Seq is the 1-based order in which the rename was applied.
	Seq int `json:"seq,omitempty" yaml:"seq,omitempty"`
}

// IsNoop reports whether the file already carries its target name.
func (op *Operation) IsNoop() bool {
	return op.Target != "" && filepath.Clean(op.Target) == filepath.Clean(op.Source.Path)
}

func (op *Operation) fail(status Status, reason Reason, detail string) {
	op.Status = status
	op.Reason = reason
	op.ErrorDetail = detail
}

// Plan is the ordered set of operations for one batch run. Operations keep
// input order.
type Plan struct {
	ID         string         `json:"id" yaml:"id"`
	CreatedAt  time.Time      `json:"createdAt" yaml:"createdAt"`
	Overwrite  bool           `json:"overwrite,omitempty" yaml:"overwrite,omitempty"`
	Operations []*Operation   `json:"operations" yaml:"operations"`
	Stats      metadata.Stats `json:"stats" yaml:"stats"`
}

// Summary counts operations by status.
type Summary struct {
	Total      int `json:"total"`
	Planned    int `json:"planned"`
	Conflict   int `json:"conflict"`
	Applied    int `json:"applied"`
	Failed     int `json:"failed"`
	RolledBack int `json:"rolledBack"`
}

// Summary returns the plan's status counts.
func (p *Plan) Summary() Summary {
	s := Summary{Total: len(p.Operations)}
	for _, op := range p.Operations {
		switch op.Status {
		case StatusPlanned:
			s.Planned++
		case StatusConflict:
			s.Conflict++
		case StatusApplied:
			s.Applied++
		case StatusFailed:
			s.Failed++
		case StatusRolledBack:
			s.RolledBack++
		}
	}
	return s
}
