package intercept

import (
	"errors"
	"log/slog"

	"github.com/sunbk201/appbundle/internal/asset"
	"github.com/sunbk201/appbundle/internal/route"
	"github.com/sunbk201/appbundle/internal/statistics"
)

// Navigator is the part of the host that owns top-level page loads.
type Navigator interface {
	StopLoading()
	LoadURL(url string)
}

// Interceptor applies a route table to host navigation and resource events.
// It holds no matching logic of its own.
type Interceptor struct {
	table    *route.Table
	nav      Navigator
	resolver asset.Resolver
	recorder *statistics.Recorder
}

func New(table *route.Table, nav Navigator, resolver asset.Resolver, recorder *statistics.Recorder) *Interceptor {
	return &Interceptor{
		table:    table,
		nav:      nav,
		resolver: resolver,
		recorder: recorder,
	}
}

func (i *Interceptor) Table() *route.Table {
	return i.table
}

// OnNavigationStart redirects a top-level load when the matching rule asks
// for it. A bundle rewrite is tagged with Marker so the redirected load is
// not rewritten by the bundle rule again; it can still match other rules.
func (i *Interceptor) OnNavigationStart(rawURL string) {
	var opts []route.ResolveOption
	if HasMarker(rawURL) {
		opts = append(opts, route.SkipBundle())
	}

	res, ok := i.resolve(rawURL, opts...)
	if !ok || !res.Rule.Redirect() {
		return
	}

	target := res.URL
	if res.Bundle() {
		target = AddMarker(target)
	}
	slog.Info("Redirecting navigation", slog.String("url", rawURL), slog.String("target", target))
	i.nav.StopLoading()
	i.nav.LoadURL(target)
	i.recorder.Redirect()
}

// OnResourceRequest serves a matched request straight from the resolver,
// whatever the rule's redirect flag says. It returns false when the host
// should fall back to its default handling.
func (i *Interceptor) OnResourceRequest(rawURL string) (*asset.Resource, bool) {
	res, ok := i.resolve(rawURL)
	if !ok {
		i.recorder.Resource(statistics.ResourceUnhandled)
		return nil, false
	}

	resource, err := i.resolver.Resolve(res.URL)
	if err != nil {
		if !errors.Is(err, asset.ErrNotFound) {
			slog.Error("resolver.Resolve", slog.String("uri", res.URL), slog.Any("error", err))
		}
		i.recorder.Resource(statistics.ResourceNotFound)
		return nil, false
	}
	slog.Debug("Serving rerouted resource", slog.String("url", rawURL), slog.String("uri", res.URL), slog.Any("resource", resource))
	i.recorder.Resource(statistics.ResourceServed)
	return resource, true
}

// Dispatch runs a command against the table.
func (i *Interceptor) Dispatch(cmd Command) error {
	err := Execute(i.table, cmd)
	if err != nil {
		slog.Warn("Command refused", slog.Any("command", cmd), slog.Any("error", err))
		i.recorder.Registration(route.ErrorKind(err))
		return err
	}
	slog.Info("Command executed", slog.Any("command", cmd), slog.Int("rules_count", i.table.Len()))
	i.recorder.Registration("ok")
	return nil
}

func (i *Interceptor) resolve(rawURL string, opts ...route.ResolveOption) (route.Resolution, bool) {
	res, ok := i.table.Resolve(rawURL, opts...)
	switch {
	case !ok:
		i.recorder.Resolution(statistics.OutcomeMiss, "", rawURL, "")
	case res.Bundle():
		i.recorder.Resolution(statistics.OutcomeBundle, res.Rule.Match(), rawURL, res.URL)
	default:
		i.recorder.Resolution(statistics.OutcomeAlias, res.Rule.Match(), rawURL, res.URL)
	}
	return res, ok
}
