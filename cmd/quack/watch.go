package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Sarcastic-Soul/blog-app/internal/client"
	"github.com/Sarcastic-Soul/blog-app/internal/session"
)

// watch follows the session and post events until interrupted. Session
// state is re-checked when the token file changes, on SIGUSR1 and when the
// server reports a deleted session.
func (a *app) watch(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ctrl := a.controller(session.Options{})
	updates, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	a.printSnapshot(ctrl.Start(ctx, nil))

	watcher, err := session.NewTokenWatcher(a.cfg.TokenFile, ctrl, session.DefaultSettleDelay, a.log.Component("token-watcher"))
	if err != nil {
		return err
	}
	go watcher.Run(ctx)
	go session.WatchSignals(ctx, ctrl, focusSignals()...)
	go ctrl.Run(ctx)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-updates:
				fmt.Fprintf(a.out, "[%s] session changed\n", time.Now().Format(time.TimeOnly))
				a.printSnapshot(snap)
			}
		}
	}()

	fmt.Fprintln(a.out, "Watching for changes. Press Ctrl+C to stop.")
	return a.client.Subscribe(ctx, func(e client.Event) {
		a.handleEvent(ctrl, e)
	})
}

// postSummary is the part of a post event quack prints.
type postSummary struct {
	ID    string `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

func (a *app) handleEvent(refresher session.Refresher, e client.Event) {
	at := e.At.Local().Format(time.TimeOnly)
	switch e.Type {
	case client.EventSessionDeleted:
		refresher.Trigger(session.ReasonRealtime)
	case client.EventPostCreated, client.EventPostUpdated, client.EventPostDeleted:
		var p postSummary
		if err := json.Unmarshal(e.Data, &p); err != nil {
			a.log.Debug("unreadable post event", "type", e.Type, "error", err)
			return
		}
		name := p.Title
		if name == "" {
			name = p.ID
		}
		fmt.Fprintf(a.out, "[%s] %s %s\n", at, e.Type, name)
	case client.EventConnected:
		a.log.Debug("realtime connected")
	default:
		a.log.Debug("unhandled event", "type", e.Type)
	}
}
