package models

// -----------------------------------------------------------------------------
// Control-plane wire messages. Every outbound message carries "id" (decimal
// string, connection-local counter for direct replies, epoch millis for
// broadcasts) and the type discriminant "t"; replies carry "rid".
// -----------------------------------------------------------------------------

type MStatus struct {
	ID            string `json:"id"`
	T             string `json:"t"`
	Scenario      string `json:"scenario"`
	ClientsActive int    `json:"clientsActive"`
	Accept        bool   `json:"accept"`
}

type MConfigMsg struct {
	ID        string   `json:"id"`
	T         string   `json:"t"`
	Scenarios []string `json:"scenarios"`
	Current   string   `json:"current"`
}

type MScenarioSet struct {
	ID       string `json:"id"`
	T        string `json:"t"`
	Scenario string `json:"scenario"`
}

type MErrorMsg struct {
	ID      string `json:"id"`
	T       string `json:"t"`
	Message string `json:"message"`
}

type MLogMsg struct {
	ID      string `json:"id"`
	T       string `json:"t"`
	Message string `json:"message"`
}

type MClientsClosed struct {
	ID      string   `json:"id"`
	T       string   `json:"t"`
	Clients []string `json:"clients"`
}

// -----------------------------------------------------------------------------
// Inbound envelope. Parsed leniently: user messages are re-read as a raw tree
// for path extraction, control messages use the typed fields below.
// -----------------------------------------------------------------------------

type MInbound struct {
	ID             string      `json:"id"`
	T              string      `json:"t"`
	Cmd            string      `json:"cmd"`
	Scenario       string      `json:"scenario"`
	Ops            []MManualOp `json:"ops"`
	ReplaceCurrent bool        `json:"replaceCurrent"`
}

// MManualOp is one explicit level operation of a bulk "manual quote" command.
type MManualOp struct {
	Side   string  `json:"side"`
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
}

// -----------------------------------------------------------------------------
// Quote stream rows.
// -----------------------------------------------------------------------------

// MQuoteItem is one row of an outgoing quote array. Ask rows carry a negative
// price on the wire; internal book keys are always positive magnitudes.
type MQuoteItem struct {
	I string  `json:"i"`
	P float64 `json:"p"`
	V float64 `json:"v"`
	T int64   `json:"t"`
}

// MBookRow is one persisted row of a saved seed document.
type MBookRow struct {
	P float64 `json:"p"`
	V float64 `json:"v"`
	Y float64 `json:"y"`
	T int64   `json:"t"`
}
