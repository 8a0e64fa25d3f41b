package metrics

import (
	"github.com/wudi/wampd/internal/realm"
	"github.com/wudi/wampd/internal/session"
)

// RealmObserver adapts a Collector to realm.Observer so a realm's join
// and leave events update wampd_sessions_* without the realm package
// importing metrics itself. OnRealmClosed records nothing.
type RealmObserver struct {
	uri string
	c   *Collector
}

func NewRealmObserver(realmURI string, c *Collector) *RealmObserver {
	return &RealmObserver{uri: realmURI, c: c}
}

func (o *RealmObserver) OnSessionJoin(sess *session.Session) {
	o.c.RecordSessionJoin(o.uri)
}

func (o *RealmObserver) OnSessionLeave(sessionID uint64) {
	o.c.RecordSessionLeave(o.uri)
}

func (o *RealmObserver) OnRealmClosed(realmURI string) {}

var _ realm.Observer = (*RealmObserver)(nil)
