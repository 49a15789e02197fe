package interfaces

import "context"

// SourceOrigin labels which provider produced a resolved source.
type SourceOrigin string

const (
	OriginSourcify SourceOrigin = "sourcify"
	OriginExplorer SourceOrigin = "explorer"
	OriginBytecode SourceOrigin = "bytecode"
	OriginIPFS     SourceOrigin = "ipfs"
)

// SourceQuery identifies the artifact to resolve. Either Pointer is set (a
// report or content identifier), or Contract+ChainID are.
type SourceQuery struct {
	Contract Address
	ChainID  ChainID
	Pointer  string
}

// ResolvedSource is the tagged success result of a source resolution.
type ResolvedSource struct {
	// Origin names the provider that produced this result.
	Origin SourceOrigin `json:"origin"`

	// Source is the concatenated human-readable source, or 0x-prefixed
	// bytecode when Origin is OriginBytecode.
	Source string `json:"source"`

	// Files maps file names to contents when the provider returns verified
	// multi-file sources.
	Files map[string]string `json:"files,omitempty"`
}

// SourceResolver resolves contract source or bytecode by trying external
// providers in priority order. A total miss returns an error aggregating
// every provider's failure reason.
type SourceResolver interface {
	Resolve(ctx context.Context, query SourceQuery) (*ResolvedSource, error)
}

// AdvisoryConfidence tags how an advisory was obtained from the model
// output.
type AdvisoryConfidence string

const (
	// ConfidenceStrict means the model returned well-formed JSON.
	ConfidenceStrict AdvisoryConfidence = "strict"

	// ConfidenceExtracted means JSON was recovered from surrounding prose.
	ConfidenceExtracted AdvisoryConfidence = "extracted"

	// ConfidencePlaceholder means parsing failed entirely and the advisory
	// is a low-confidence default.
	ConfidencePlaceholder AdvisoryConfidence = "placeholder"
)

// AdvisoryRisk is a single finding in an advisory.
type AdvisoryRisk struct {
	Title      string `json:"title"`
	Severity   string `json:"severity"`
	Details    string `json:"details"`
	Mitigation string `json:"mitigation"`
}

// Advisory is the structured result of an advisory generation. Callers
// always receive a well-typed value; parsing failures degrade to a
// placeholder instead of an error.
type Advisory struct {
	Score           int                `json:"score"`
	Summary         string             `json:"summary"`
	Risks           []AdvisoryRisk     `json:"risks"`
	Recommendations []string           `json:"recommendations"`
	Confidence      AdvisoryConfidence `json:"confidence"`
}

// AdvisoryGenerator produces a best-effort structured advisory for a code
// or bytecode blob.
type AdvisoryGenerator interface {
	Analyze(ctx context.Context, source string) (*Advisory, error)
}
