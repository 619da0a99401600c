package viewmodel

import (
	"context"
	"strings"

	"github.com/five82/lector/internal/biblio"
	"github.com/five82/lector/internal/failure"
	"github.com/five82/lector/internal/result"
	"github.com/five82/lector/internal/state"
)

// Groups drives reading groups, their members and room schedules.
type Groups struct {
	api biblio.API

	List      *state.Slot[[]biblio.Group]
	Members   *state.Slot[[]biblio.User]
	Schedules *state.Slot[[]biblio.Schedule]
}

func NewGroups(api biblio.API) *Groups {
	return &Groups{
		api:       api,
		List:      state.NewListSlot[biblio.Group](),
		Members:   state.NewListSlot[biblio.User](),
		Schedules: state.NewListSlot[biblio.Schedule](),
	}
}

func (g *Groups) Load(ctx context.Context) result.Result[[]biblio.Group] {
	return load(g.List, failure.OpLoadGroups, func() ([]biblio.Group, error) {
		return g.api.ListGroups(ctx)
	})
}

func (g *Groups) Create(ctx context.Context, req biblio.GroupRequest) result.Result[biblio.Group] {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return invalid[biblio.Group](failure.OpSaveGroup, "El nom del grup és obligatori")
	}
	res := call(failure.OpSaveGroup, func() (biblio.Group, error) {
		return deref(g.api.CreateGroup(ctx, req))
	})
	if res.IsSuccess() {
		g.Load(ctx)
	}
	return res
}

func (g *Groups) Delete(ctx context.Context, id int64) result.Result[none] {
	res := call(failure.OpDeleteGroup, func() (none, error) {
		return discard(g.api.DeleteGroup(ctx, id))
	})
	if res.IsSuccess() {
		g.Load(ctx)
	}
	return res
}

func (g *Groups) LoadMembers(ctx context.Context, groupID int64) result.Result[[]biblio.User] {
	return load(g.Members, failure.OpMembers, func() ([]biblio.User, error) {
		return g.api.ListMembers(ctx, groupID)
	})
}

// AddMember adds userID to groupID and reloads the member list.
func (g *Groups) AddMember(ctx context.Context, groupID, userID int64) result.Result[none] {
	res := call(failure.OpMembers, func() (none, error) {
		return discard(g.api.AddMember(ctx, groupID, userID))
	})
	if res.IsSuccess() {
		g.LoadMembers(ctx, groupID)
	}
	return res
}

// RemoveMember removes userID from groupID and reloads the member list.
func (g *Groups) RemoveMember(ctx context.Context, groupID, userID int64) result.Result[none] {
	res := call(failure.OpMembers, func() (none, error) {
		return discard(g.api.RemoveMember(ctx, groupID, userID))
	})
	if res.IsSuccess() {
		g.LoadMembers(ctx, groupID)
	}
	return res
}

func (g *Groups) LoadSchedules(ctx context.Context) result.Result[[]biblio.Schedule] {
	return load(g.Schedules, failure.OpLoadSchedules, func() ([]biblio.Schedule, error) {
		return g.api.ListSchedules(ctx)
	})
}

func (g *Groups) CreateSchedule(ctx context.Context, req biblio.ScheduleRequest) result.Result[biblio.Schedule] {
	req.Room, req.Day, req.Hour = strings.TrimSpace(req.Room), strings.TrimSpace(req.Day), strings.TrimSpace(req.Hour)
	if req.Room == "" || req.Day == "" || req.Hour == "" {
		return invalid[biblio.Schedule](failure.OpSaveSchedule, "Cal indicar sala, dia i hora")
	}
	res := call(failure.OpSaveSchedule, func() (biblio.Schedule, error) {
		return deref(g.api.CreateSchedule(ctx, req))
	})
	if res.IsSuccess() {
		g.LoadSchedules(ctx)
	}
	return res
}
