package realm

import (
	"github.com/wudi/wampd/internal/metaapi"
	"github.com/wudi/wampd/internal/wampproto"
)

// RouteCall answers req through the meta-API when the realm has one
// enabled and req.Procedure is one of its built-in procedures under the
// reserved wamp.* namespace (spec.md §7's built-in procedure list). In
// every other case (no meta-API, a procedure outside wamp.*, or a
// wamp.* procedure the meta-API does not know) it returns
// handled=false without touching the dealer, leaving the caller to
// route req itself.
func (r *Realm) RouteCall(req wampproto.Call) (result wampproto.Result, errReply *wampproto.Error, handled bool) {
	if !metaapi.IsReserved(req.Procedure) || r.Meta == nil {
		return wampproto.Result{}, nil, false
	}
	res, errReply, handled := r.Meta.Call(req)
	if handled {
		res.Request = req.Request
	}
	return res, errReply, handled
}
