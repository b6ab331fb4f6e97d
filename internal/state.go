package internal

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ogero/movie-catalog/internal/common"
)

// Route identifies one of the catalog pages. Each route is served by exactly one controller.
type Route int

const (
	RouteSearch Route = iota
	RouteTimeline
	RoutePopular
	RouteDetail
)

// pageRoutes lists every page route in navigation order.
var pageRoutes = []Route{RouteSearch, RouteTimeline, RoutePopular, RouteDetail}

var routePaths = map[Route]string{
	RouteSearch:   "/",
	RouteTimeline: "/new",
	RoutePopular:  "/popular",
	RouteDetail:   "/detail",
}

// Path returns the URL path the route is mounted on.
func (r Route) Path() string {
	return routePaths[r]
}

func (r Route) String() string {
	switch r {
	case RouteSearch:
		return "search"
	case RouteTimeline:
		return "timeline"
	case RoutePopular:
		return "popular"
	case RouteDetail:
		return "detail"
	}
	return fmt.Sprintf("Route(%d)", int(r))
}

// DetailURL returns the link to the detail page of the given identifier.
func DetailURL(id string) string {
	return RouteDetail.Path() + "?" + url.Values{"id": {id}}.Encode()
}

// State is the render state of a page.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateRendered
	StateEmptyResult
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateRendered:
		return "rendered"
	case StateEmptyResult:
		return "empty"
	case StateError:
		return "error"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText renders the state by name in JSON views.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further transition is allowed from s.
func (s State) Terminal() bool {
	return s == StateRendered || s == StateEmptyResult || s == StateError
}

// StateObserver is notified of every state transition of every render pass.
type StateObserver func(ctx context.Context, route Route, state State)

// pass tracks a single render pass: Idle, then Loading, then one terminal state.
type pass struct {
	route    Route
	state    State
	observer StateObserver
}

func newPass(route Route, observer StateObserver) *pass {
	return &pass{route: route, state: StateIdle, observer: observer}
}

func (p *pass) advance(ctx context.Context, to State) {
	valid := (p.state == StateIdle && to == StateLoading) ||
		(p.state == StateLoading && to.Terminal())
	if !valid {
		common.Log.WarnContext(ctx, "Rejected state transition", "route", p.route, "from", p.state, "to", to)
		return
	}

	p.state = to
	if p.observer != nil {
		p.observer(ctx, p.route, to)
	}
}
