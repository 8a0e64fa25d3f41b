package metaapi

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/wudi/wampd/internal/wampproto"
)

// RealmLookup resolves a realm URI to the metaapi.Registry serving it.
// internal/router.Router implements this by wrapping Router.Realm.
type RealmLookup func(realmURI string) (*Registry, bool)

// NewHTTPHandler builds the additive admin introspection surface
// spec.md §6 calls out as non-normative: GET /meta/{realm}/sessions,
// /meta/{realm}/subscriptions, and /meta/{realm}/registrations, each
// answering with the same JSON a WAMP client would get back from the
// corresponding wamp.*.list meta-API call. It drives the call through
// Registry.Call itself rather than re-reading realm state directly, so
// this surface can never drift from what a WAMP client sees.
func NewHTTPHandler(lookup RealmLookup) http.Handler {
	router := httprouter.New()
	router.GET("/meta/:realm/sessions", handleList(lookup, "wamp.session.list"))
	router.GET("/meta/:realm/subscriptions", handleList(lookup, "wamp.subscription.list"))
	router.GET("/meta/:realm/registrations", handleList(lookup, "wamp.registration.list"))
	router.GET("/meta/:realm/events", handleEvents(lookup))
	return router
}

// handleEvents serves the realm's bounded recent-meta-events replay
// buffer (internal/metaapi/replay.go), letting an admin client that
// attaches after the fact see what it missed.
func handleEvents(lookup RealmLookup) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		reg, ok := lookup(params.ByName("realm"))
		if !ok {
			http.Error(w, "unknown realm", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(reg.RecentEvents(0))
	}
}

func handleList(lookup RealmLookup, procedure string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		reg, ok := lookup(params.ByName("realm"))
		if !ok {
			http.Error(w, "unknown realm", http.StatusNotFound)
			return
		}

		result, errReply, handled := reg.Call(wampproto.Call{Procedure: procedure})
		if !handled {
			http.Error(w, "meta-API procedure not available", http.StatusNotFound)
			return
		}
		if errReply != nil {
			http.Error(w, errReply.URI, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"args":   result.Args,
			"kwargs": result.Kwargs,
		})
	}
}
