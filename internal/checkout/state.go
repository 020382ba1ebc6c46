// Package checkout routes visitors through cart, consultation, checkout and success.
//
// The guard is advisory UI routing, not a security boundary: the consultation flag only
// records that the scheduling widget reported a booking.
package checkout

import (
	"strings"

	"github.com/microip/storefront-backend/internal/consultation"
	"github.com/microip/storefront-backend/internal/scheduling"
)

type State string

const (
	StateCart         State = "cart"
	StateConsultation State = "consultation"
	StateCheckout     State = "checkout"
	StateSuccess      State = "success"
	// StateCatalog is the redirect target when the cart is empty.
	StateCatalog State = "catalog"
)

// FlagScope is the session storage scope of the "consultation scheduled" flag.
const FlagScope = "consultation_scheduled"

var paths = map[State]string{
	StateCatalog:      "/products",
	StateCart:         "/cart",
	StateConsultation: "/consultation",
	StateCheckout:     "/checkout",
	StateSuccess:      "/checkout/success",
}

// Path is the front-end route for s.
func (s State) Path() string {
	return paths[s]
}

// ParsePage maps a page name to a guarded state.
func ParsePage(raw string) (State, bool) {
	page := State(strings.ToLower(strings.TrimSpace(raw)))
	switch page {
	case StateCart, StateConsultation, StateCheckout, StateSuccess:
		return page, true
	default:
		return "", false
	}
}

// Decision is where a visitor asking for Page should be. Redirect is set whenever State
// differs from Page.
type Decision struct {
	Page                  State                  `json:"page"`
	State                 State                  `json:"state"`
	Redirect              string                 `json:"redirect,omitempty"`
	ConsultationScheduled bool                   `json:"consultationScheduled"`
	ItemCount             int                    `json:"itemCount"`
	Partition             consultation.Partition `json:"partition"`
	Widget                *scheduling.Embed      `json:"widget,omitempty"`
	WidgetError           string                 `json:"widgetError,omitempty"`
}
