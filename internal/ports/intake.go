package ports

// Intake is a surface that accepts submissions into the analysis pipeline
// (HTTP API, SMTP listener). Implementations own their listener lifecycle.
type Intake interface {
	// Start begins accepting submissions
	Start() error

	// Stop shuts the surface down
	Stop() error
}
