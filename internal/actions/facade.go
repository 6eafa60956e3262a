package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/bwmarrin/discordgo"

	"go-guildevents/internal/dispatcher"
	"go-guildevents/internal/models"
)

// PermissionChecker is the local permission snapshot consulted before
// mutating calls.
type PermissionChecker interface {
	HasGuildPermission(guildID models.Snowflake, perm int64) bool
}

// Facade turns scheduled event operations into remote requests. It does
// not touch the cache; cache updates arrive through the gateway.
type Facade struct {
	executor dispatcher.Executor
	perms    PermissionChecker
}

func NewFacade(executor dispatcher.Executor, perms PermissionChecker) *Facade {
	return &Facade{executor: executor, perms: perms}
}

// Delete checks MANAGE_EVENTS locally and returns the pending delete.
// Nothing is sent until the action is queued.
func (f *Facade) Delete(ev *models.ScheduledEvent) (*AuditableAction, error) {
	if ev == nil {
		return nil, fmt.Errorf("delete scheduled event: %w", models.ErrInvalidArgument)
	}
	if err := f.requirePermission(ev.GuildID(), discordgo.PermissionManageEvents, "MANAGE_EVENTS"); err != nil {
		return nil, err
	}

	route, err := dispatcher.RouteDeleteScheduledEvent.Compile(ev.GuildID().String(), ev.ID().String())
	if err != nil {
		return nil, err
	}
	return newAuditableAction(f.executor, &dispatcher.Request{
		Route:    route,
		Priority: dispatcher.PriorityHigh,
	}), nil
}

func (f *Facade) RetrieveInterestedUsers(ev *models.ScheduledEvent) *UsersPagination {
	return &UsersPagination{pager: newPager(f.executor, ev, false)}
}

func (f *Facade) RetrieveInterestedMembers(ev *models.ScheduledEvent) *MembersPagination {
	return &MembersPagination{pager: newPager(f.executor, ev, true)}
}

// ListScheduledEvents fetches every event of a guild with interested
// counts included.
func (f *Facade) ListScheduledEvents(ctx context.Context, guildID models.Snowflake) ([]*models.Payload, error) {
	route, err := dispatcher.RouteListScheduledEvents.Compile(guildID.String())
	if err != nil {
		return nil, err
	}
	query := url.Values{}
	query.Set("with_user_count", "true")

	resp, err := f.executor.Submit(ctx, &dispatcher.Request{Route: route, Query: query}).Await(ctx)
	if err != nil {
		return nil, err
	}

	var raw []json.RawMessage
	if err := resp.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode scheduled events: %w", err)
	}
	payloads := make([]*models.Payload, 0, len(raw))
	for _, data := range raw {
		p, err := models.DecodePayload(data)
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, p)
	}
	return payloads, nil
}

// Manager returns a new, empty builder for ev. Two managers never share
// state.
func (f *Facade) Manager(ev *models.ScheduledEvent) *Manager {
	return newManager(f.executor, f.perms, ev)
}

func (f *Facade) requirePermission(guildID models.Snowflake, perm int64, name string) error {
	if f.perms != nil && f.perms.HasGuildPermission(guildID, perm) {
		return nil
	}
	return &models.InsufficientPermissionError{
		GuildID:        guildID,
		Permission:     perm,
		PermissionName: name,
	}
}

// AuditableAction is a single pending request that can carry an audit
// log reason.
type AuditableAction struct {
	executor dispatcher.Executor
	request  *dispatcher.Request
}

func newAuditableAction(executor dispatcher.Executor, req *dispatcher.Request) *AuditableAction {
	return &AuditableAction{executor: executor, request: req}
}

func (a *AuditableAction) Reason(reason string) *AuditableAction {
	a.request.Reason = reason
	return a
}

func (a *AuditableAction) Request() *dispatcher.Request {
	return a.request
}

// Queue submits the request and returns without waiting.
func (a *AuditableAction) Queue(ctx context.Context) *dispatcher.Future {
	return a.executor.Submit(ctx, a.request)
}

// Complete submits the request and waits for the outcome.
func (a *AuditableAction) Complete(ctx context.Context) error {
	_, err := a.Queue(ctx).Await(ctx)
	return err
}
