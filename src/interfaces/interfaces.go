package interfaces

// -----------------------------------------------------------------------------
// IExchangeServer defines the lifecycle contract the entry point drives.
// -----------------------------------------------------------------------------

type IExchangeServer interface {

	// -----------------------------------------------------------------------------

	// Start runs the server until the listener fails or Stop is called.
	Start() error

	// -----------------------------------------------------------------------------

	// Stop shuts the server down gracefully.
	Stop() error
}

// -----------------------------------------------------------------------------
// ITemplateStore resolves message wrappers from the protocol documents. The
// engine depends on this contract so dispatcher tests can substitute fixture
// stores.
// -----------------------------------------------------------------------------

type ITemplateStore interface {

	// LoadWrapper deep-copies a named server wrapper with ${key}
	// interpolation applied; nil when absent.
	LoadWrapper(name string, vars map[string]string) interface{}

	// MatchClientWrapper maps a wire type string to its logical wrapper name.
	MatchClientWrapper(msgType string) string

	// ClientPath returns the field-extraction path expression for a logical
	// field, or empty when unset.
	ClientPath(field string) string

	// BuildClientMessage deep-copies a named client wrapper; nil when absent.
	BuildClientMessage(name string, ctx map[string]string) interface{}
}
