package broker

import (
	"github.com/wudi/wampd/internal/disclosure"
	"github.com/wudi/wampd/internal/session"
	"github.com/wudi/wampd/internal/wampproto"
)

// PublishOptions is the parsed form of a PUBLISH message's options
// dict, per spec.md §4.5's filtering-rule list.
type PublishOptions struct {
	Acknowledge bool

	Eligible       []uint64
	EligibleAuthID []string
	EligibleRole   []string

	Exclude       []uint64
	ExcludeAuthID []string
	ExcludeRole   []string
	ExcludeMe     bool // defaults to true when absent; caller applies the default

	// DiscloseMe is the publisher's own disclose_me request.
	DiscloseMe bool
	// Override is an authorization-supplied disclosure policy override
	// (Authorization.Disclosure from the authorizer chain); pass
	// disclosure.PolicyPreset for "no override".
	Override disclosure.Policy
}

// ParsePublishOptions extracts a PublishOptions from a raw PUBLISH
// options dict, applying the exclude_me-defaults-true rule.
func ParsePublishOptions(opts wampproto.Dict) PublishOptions {
	po := PublishOptions{ExcludeMe: true}
	if opts == nil {
		return po
	}
	if v, ok := opts["acknowledge"].(bool); ok {
		po.Acknowledge = v
	}
	if v, ok := opts["disclose_me"].(bool); ok {
		po.DiscloseMe = v
	}
	if v, ok := opts["exclude_me"].(bool); ok {
		po.ExcludeMe = v
	}
	po.Eligible = uint64List(opts["eligible"])
	po.EligibleAuthID = stringList(opts["eligible_authid"])
	po.EligibleRole = stringList(opts["eligible_authrole"])
	po.Exclude = uint64List(opts["exclude"])
	po.ExcludeAuthID = stringList(opts["exclude_authid"])
	po.ExcludeRole = stringList(opts["exclude_authrole"])
	return po
}

func uint64List(v any) []uint64 {
	items, ok := v.(wampproto.List)
	if !ok {
		return nil
	}
	out := make([]uint64, 0, len(items))
	for _, item := range items {
		if n, ok := wampproto.AsUint64(item); ok {
			out = append(out, n)
		}
	}
	return out
}

func stringList(v any) []string {
	items, ok := v.(wampproto.List)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func contains[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// eligibleFor applies the eligible/eligible_authid/eligible_authrole and
// exclude/exclude_authid/exclude_authrole/exclude_me rules in order, per
// spec.md §4.5.
func eligibleFor(po PublishOptions, publisher *session.Session, subscriber *session.Session) bool {
	if len(po.Eligible) > 0 && !contains(po.Eligible, subscriber.ID) {
		return false
	}
	if len(po.EligibleAuthID) > 0 && !contains(po.EligibleAuthID, subscriber.Auth.AuthID) {
		return false
	}
	if len(po.EligibleRole) > 0 && !contains(po.EligibleRole, subscriber.Auth.AuthRole) {
		return false
	}
	if contains(po.Exclude, subscriber.ID) {
		return false
	}
	if len(po.ExcludeAuthID) > 0 && contains(po.ExcludeAuthID, subscriber.Auth.AuthID) {
		return false
	}
	if len(po.ExcludeRole) > 0 && contains(po.ExcludeRole, subscriber.Auth.AuthRole) {
		return false
	}
	if po.ExcludeMe && publisher != nil && subscriber.ID == publisher.ID {
		return false
	}
	return true
}

// Publish computes matching subscriptions across all three policies,
// filters subscribers, resolves disclosure per subscriber, and enqueues
// an EVENT to each survivor. It returns the allocated publication-id.
func (b *Broker) Publish(publisher *session.Session, topic string, args wampproto.List, kwargs wampproto.Dict, po PublishOptions) uint64 {
	b.nextPubID++
	pubID := b.nextPubID

	var matches []*Subscription
	matches = append(matches, b.exact.FindMatching(topic)...)
	matches = append(matches, b.prefix.FindMatching(topic)...)
	matches = append(matches, b.wildcard.FindMatching(topic)...)

	for _, sub := range matches {
		for _, subscriber := range sub.members {
			if !eligibleFor(po, publisher, subscriber) {
				continue
			}
			disclose, _ := b.Disclosure.Resolve(po.Override, po.DiscloseMe, sub.discloseRequested)

			details := wampproto.Dict{}
			if sub.URI != topic {
				details["topic"] = topic
			}
			if disclose && publisher != nil {
				details["publisher"] = publisher.ID
				if publisher.Auth.AuthID != "" {
					details["publisher_authid"] = publisher.Auth.AuthID
				}
				if publisher.Auth.AuthRole != "" {
					details["publisher_authrole"] = publisher.Auth.AuthRole
				}
			}

			subscriber.Transport.Send(wampproto.Event{
				Subscription: sub.ID,
				Publication:  pubID,
				Details:      details,
				Args:         args,
				Kwargs:       kwargs,
			})
		}
	}
	return pubID
}
