package dispatcher

import (
	"fmt"
	"strings"

	"github.com/valyala/fasthttp"
)

// Route is a method plus a path template with {param} placeholders.
type Route struct {
	Method   string
	Template string
}

var (
	RouteListScheduledEvents = Route{
		Method:   fasthttp.MethodGet,
		Template: "/guilds/{guild_id}/scheduled-events",
	}
	RouteGetScheduledEvent = Route{
		Method:   fasthttp.MethodGet,
		Template: "/guilds/{guild_id}/scheduled-events/{event_id}",
	}
	RouteModifyScheduledEvent = Route{
		Method:   fasthttp.MethodPatch,
		Template: "/guilds/{guild_id}/scheduled-events/{event_id}",
	}
	RouteDeleteScheduledEvent = Route{
		Method:   fasthttp.MethodDelete,
		Template: "/guilds/{guild_id}/scheduled-events/{event_id}",
	}
	RouteGetScheduledEventUsers = Route{
		Method:   fasthttp.MethodGet,
		Template: "/guilds/{guild_id}/scheduled-events/{event_id}/users",
	}
)

func (r Route) String() string {
	return r.Method + " " + r.Template
}

// ParamNames lists the placeholders in template order.
func (r Route) ParamNames() []string {
	var names []string
	rest := r.Template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			return names
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return names
		}
		names = append(names, rest[open+1:open+end])
		rest = rest[open+end+1:]
	}
}

// Compile substitutes params into the template in order.
func (r Route) Compile(params ...string) (CompiledRoute, error) {
	names := r.ParamNames()
	if len(names) != len(params) {
		return CompiledRoute{}, fmt.Errorf("route %s expects %d params, got %d", r, len(names), len(params))
	}

	path := r.Template
	values := make(map[string]string, len(names))
	for i, name := range names {
		if params[i] == "" {
			return CompiledRoute{}, fmt.Errorf("route %s: empty %s", r, name)
		}
		path = strings.Replace(path, "{"+name+"}", params[i], 1)
		values[name] = params[i]
	}

	major := ""
	if len(params) > 0 {
		major = params[0]
	}

	return CompiledRoute{Route: r, Path: path, Params: values, major: major}, nil
}

// MustCompile panics on a parameter mismatch. Only for static routes.
func (r Route) MustCompile(params ...string) CompiledRoute {
	c, err := r.Compile(params...)
	if err != nil {
		panic(err)
	}
	return c
}

type CompiledRoute struct {
	Route  Route
	Path   string
	Params map[string]string
	major  string
}

// BucketKey groups requests that share a rate limit: same route, same
// major parameter.
func (c CompiledRoute) BucketKey() string {
	return c.Route.String() + ":" + c.major
}
