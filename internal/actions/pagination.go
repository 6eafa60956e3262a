package actions

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"go-guildevents/internal/dispatcher"
	"go-guildevents/internal/models"
)

const (
	MinPageSize     = 1
	MaxPageSize     = 100
	DefaultPageSize = 100
)

// pager walks /scheduled-events/{id}/users with an after cursor, which
// yields ascending user ids.
type pager struct {
	executor   dispatcher.Executor
	guildID    models.Snowflake
	eventID    models.Snowflake
	withMember bool
	limit      int
	cursor     models.Snowflake
	done       bool
}

func newPager(executor dispatcher.Executor, ev *models.ScheduledEvent, withMember bool) *pager {
	return &pager{
		executor:   executor,
		guildID:    ev.GuildID(),
		eventID:    ev.ID(),
		withMember: withMember,
		limit:      DefaultPageSize,
	}
}

func (p *pager) setLimit(n int) error {
	if n < MinPageSize || n > MaxPageSize {
		return fmt.Errorf("page limit %d outside [%d, %d]: %w", n, MinPageSize, MaxPageSize, models.ErrInvalidArgument)
	}
	p.limit = n
	return nil
}

func (p *pager) fetch(ctx context.Context) ([]*discordgo.GuildScheduledEventUser, error) {
	if p.done {
		return nil, nil
	}

	route, err := dispatcher.RouteGetScheduledEventUsers.Compile(p.guildID.String(), p.eventID.String())
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(p.limit))
	if p.withMember {
		query.Set("with_member", "true")
	}
	if p.cursor != 0 {
		query.Set("after", p.cursor.String())
	}

	resp, err := p.executor.Submit(ctx, &dispatcher.Request{Route: route, Query: query}).Await(ctx)
	if err != nil {
		return nil, err
	}

	var page []*discordgo.GuildScheduledEventUser
	if err := resp.Decode(&page); err != nil {
		return nil, fmt.Errorf("decode interested users: %w", err)
	}

	for _, entry := range page {
		if entry == nil || entry.User == nil {
			continue
		}
		if id, err := models.ParseSnowflake(entry.User.ID); err == nil && id > p.cursor {
			p.cursor = id
		}
	}
	if len(page) < p.limit {
		p.done = true
	}
	return page, nil
}

// UsersPagination lists the users interested in an event.
type UsersPagination struct {
	*pager
}

func (up *UsersPagination) Limit(n int) error { return up.setLimit(n) }

// Cursor is the highest user id seen so far.
func (up *UsersPagination) Cursor() models.Snowflake { return up.cursor }

func (up *UsersPagination) Done() bool { return up.done }

// Next fetches one page. Past the last page it returns an empty slice.
func (up *UsersPagination) Next(ctx context.Context) ([]*models.User, error) {
	page, err := up.fetch(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]*models.User, 0, len(page))
	for _, entry := range page {
		if u := models.UserFromWire(entry.User); u != nil {
			users = append(users, u)
		}
	}
	return users, nil
}

func (up *UsersPagination) All(ctx context.Context) ([]*models.User, error) {
	var all []*models.User
	for !up.done {
		users, err := up.Next(ctx)
		if err != nil {
			return all, err
		}
		all = append(all, users...)
	}
	return all, nil
}

// MembersPagination lists interested users that are still guild members.
// Users that left the guild are skipped.
type MembersPagination struct {
	*pager
}

func (mp *MembersPagination) Limit(n int) error { return mp.setLimit(n) }

func (mp *MembersPagination) Cursor() models.Snowflake { return mp.cursor }

func (mp *MembersPagination) Done() bool { return mp.done }

func (mp *MembersPagination) Next(ctx context.Context) ([]*models.Member, error) {
	page, err := mp.fetch(ctx)
	if err != nil {
		return nil, err
	}
	members := make([]*models.Member, 0, len(page))
	for _, entry := range page {
		if entry.Member == nil {
			continue
		}
		member := models.MemberFromWire(entry.Member)
		if member.User == nil {
			member.User = models.UserFromWire(entry.User)
		}
		if member.User == nil {
			continue
		}
		member.GuildID = mp.guildID
		members = append(members, member)
	}
	return members, nil
}

func (mp *MembersPagination) All(ctx context.Context) ([]*models.Member, error) {
	var all []*models.Member
	for !mp.done {
		members, err := mp.Next(ctx)
		if err != nil {
			return all, err
		}
		all = append(all, members...)
	}
	return all, nil
}
