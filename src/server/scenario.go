package server

import (
	"strings"
	"time"

	"exchange-sim/src/models"
)

// -----------------------------------------------------------------------------
// Scenario switching
// -----------------------------------------------------------------------------

const (
	// closeGrace is how long a peer gets to finish the close handshake
	// before the connection is dropped outright.
	closeGrace = time.Second
	// reacceptDelay is the pause before user connections are admitted again
	// after a scenario switch.
	reacceptDelay = 200 * time.Millisecond
)

// handleSetScenario persists the target scenario and drains user sessions so
// the next subscribe picks up the new seed. Switching to the already-current
// scenario writes nothing and drains nobody.
func (e *Engine) handleSetScenario(c *Client, msg models.MInbound) {
	scn := strings.TrimSpace(msg.Scenario)
	changed, err := e.settings.ApplyScenarioAndPersist(scn)
	if err != nil {
		e.trySend(c, models.MErrorMsg{ID: c.nextID(), T: "Error", Message: err.Error()})
		return
	}

	if changed {
		e.logToControls("scenario -> " + scn)
		e.acceptUserClients = false
		e.closeAllUsers(1000, "scenario_change")
		e.broadcastStatusToControls()
		e.schedulePosted(reacceptDelay, func() {
			e.acceptUserClients = true
			e.broadcastStatusToControls()
		})
	}

	e.trySend(c, models.MScenarioSet{ID: c.nextID(), T: "ScenarioSet", Scenario: scn})
}

// closeAllUsers starts a close handshake with every user connection and
// force-terminates the stragglers after the grace period. Controls get a
// ClientsClosed notification with the drained session ids.
func (e *Engine) closeAllUsers(code int, reason string) {
	e.notifyClientsClosed(e.activeSessionIDs())

	users := make([]*Client, 0)
	for c := range e.clients {
		if !c.isControl {
			users = append(users, c)
		}
	}
	for _, c := range users {
		c.sendClose(code, reason)
	}
	e.scheduleTerminate(users)
}

// scheduleTerminate force-closes any of the given connections still
// registered after the grace period.
func (e *Engine) scheduleTerminate(targets []*Client) {
	e.schedulePosted(closeGrace, func() {
		for _, c := range targets {
			if _, ok := e.clients[c]; ok {
				c.terminate()
			}
		}
	})
}
