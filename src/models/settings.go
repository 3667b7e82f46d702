package models

// MSettings is the typed view of the runtime settings document (setting.json).
// The document is an external contract: the store keeps the raw tree alongside
// this view so a persist never drops keys it does not model.
type MSettings struct {
	Port             int                  `json:"port"`
	CurrentScenario  string               `json:"current_scenario"`
	Scenarios        map[string]MScenario `json:"scenarios"`
	Heartbeat        MHeartbeat           `json:"heartbeat"`
	URL              string               `json:"url"`
	ControlURL       string               `json:"controlUrl"`
	URLControlPath   string               `json:"urlControlPath"`
	URLControlParams map[string]string    `json:"urlControlParams"`
	ZeroFlash        bool                 `json:"zeroFlash"`
	InstrumentSource string               `json:"instrumentSource"`
}

// MScenario selects which order-book sides are visible to subscribers.
type MScenario struct {
	Bid bool `json:"bid"`
	Ask bool `json:"ask"`
}

type MHeartbeat struct {
	IntervalMs int `json:"interval_ms"`
	TimeoutMs  int `json:"timeout_ms"`
}
