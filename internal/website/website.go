// Package website is the demo application served by the rawhttp binary.
package website

import (
	"github.com/rs/zerolog"

	"github.com/shapestone/rawhttp/pkg/http"
)

// Handler routes requests by path, then by method.
type Handler struct {
	log zerolog.Logger
}

// New returns the demo handler. log receives route-level diagnostics.
func New(log zerolog.Logger) *Handler {
	return &Handler{log: log}
}

type route struct {
	methods []http.Method
	serve   func(h *Handler, req *http.Request) *http.Response
}

var routes = map[string]route{
	"/":       {[]http.Method{http.MethodGet, http.MethodHead}, (*Handler).home},
	"/status": {[]http.Method{http.MethodGet, http.MethodHead}, (*Handler).status},
	"/query":  {[]http.Method{http.MethodGet, http.MethodHead}, (*Handler).query},
	"/echo":   {[]http.Method{http.MethodPost}, (*Handler).echo},
	"/debug":  {[]http.Method{http.MethodGet, http.MethodPost, http.MethodHead}, (*Handler).debug},
}

// Handle implements server.Handler.
func (h *Handler) Handle(req *http.Request) *http.Response {
	rt, ok := routes[req.Path]
	if !ok {
		return http.NotFound().WithText("Not found")
	}
	for _, m := range rt.methods {
		if m == req.Method {
			return rt.serve(h, req)
		}
	}
	return http.MethodNotAllowed().
		WithHeader("Allow", allow(rt.methods)).
		WithText("Method not allowed")
}

func (h *Handler) home(*http.Request) *http.Response {
	return http.OK().WithText("Hello from rawhttp")
}

func (h *Handler) status(*http.Request) *http.Response {
	return http.OK().WithText("Server is running")
}

func (h *Handler) query(req *http.Request) *http.Response {
	msg := req.Query.Get("message")
	if msg == "" {
		return http.OK().WithText("No message provided")
	}
	return http.OK().WithText("Message: " + msg)
}

func (h *Handler) echo(req *http.Request) *http.Response {
	return http.OK().WithText("Echo: " + string(req.Body))
}

// debug answers with the request as the server understood it, re-rendered
// from its AST view.
func (h *Handler) debug(req *http.Request) *http.Response {
	wire, err := http.Render(http.RequestToNode(req))
	if err != nil {
		h.log.Error().Err(err).Str("path", req.Path).Msg("render request")
		return http.InternalServerError().WithText("Internal Server Error")
	}
	return http.OK().WithHeader("Content-Type", "message/http").WithBody(wire)
}

func allow(methods []http.Method) string {
	s := ""
	for i, m := range methods {
		if i > 0 {
			s += ", "
		}
		s += m.String()
	}
	return s
}
