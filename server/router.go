// server/router.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"preflop-coach/server/coach"
	"preflop-coach/server/llm"
	"preflop-coach/server/question"
	"preflop-coach/server/quiz"
	"preflop-coach/server/ranges"
	"preflop-coach/server/solve"
	"preflop-coach/server/store"
)

// App is everything the HTTP handlers need.
type App struct {
	Store          store.Reader
	Assistant      *question.Assistant
	Coach          *coach.Coach
	Quiz           *quiz.Quizmaster
	Solver         *solve.Solver
	Logger         *log.Logger
	AllowedOrigins []string
}

func Router(app *App) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(app.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors(app.AllowedOrigins))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"message": "API is running!"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", app.health)
		r.Get("/positions", app.positions)
		r.Get("/positions/{position}/nodes", app.nodes)
		r.Get("/nodes/{id}", app.node)
		r.Get("/lookup", app.lookup)
		r.Post("/question", app.question)
	})

	r.Post("/ask", app.ask)
	r.Post("/ask/close", app.closeSession)
	r.Post("/quiz", app.quizGenerate)
	r.Post("/quiz_static", app.quizStatic)
	r.Post("/quiz_feedback", app.quizFeedback)
	r.Post("/solve", app.solve)
	return r
}

/* ----- ranges ----- */

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.Store.Ping(ctx); err != nil {
		a.Logger.Warn("health check failed", "err", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func (a *App) positions(w http.ResponseWriter, r *http.Request) {
	rows, err := a.Store.Positions(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if rows == nil {
		rows = []store.PositionCount{}
	}
	writeJSON(w, map[string]any{"positions": rows})
}

func (a *App) nodes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pos, err := question.CanonicalPosition(ctx, a.Store, chi.URLParam(r, "position"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	nodes, err := a.Store.NodesForPosition(ctx, pos)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if nodes == nil {
		nodes = []store.Node{}
	}
	writeJSON(w, map[string]any{"position": pos, "nodes": nodes})
}

func (a *App) node(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid node id")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			limit = n
		}
	}
	totals, err := a.Store.ActionTotals(ctx, id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if len(totals) == 0 {
		writeError(w, http.StatusNotFound, "no ranges for node")
		return
	}
	top := map[string][]store.RangeRow{}
	for _, t := range totals {
		combos, err := a.Store.TopCombos(ctx, id, t.Action, limit)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		top[t.Action] = combos
	}
	writeJSON(w, map[string]any{"node_id": id, "totals": totals, "top_combos": top})
}

func (a *App) lookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	qs := r.URL.Query()
	q, err := question.BuildQuery(ctx, a.Store, qs.Get("position"), qs.Get("actions"), qs.Get("hand"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := ranges.Lookup(ctx, a.Store, q)
	if errors.Is(err, store.ErrNoNode) {
		writeJSON(w, map[string]any{
			"position": q.Position, "sequence": q.Sequence, "hand": q.Hand,
			"found": false, "text": ranges.NoNodeText(q.Position, q.Sequence),
		})
		return
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, map[string]any{
		"position": q.Position, "sequence": q.Sequence, "hand": q.Hand,
		"found": true, "node_id": res.NodeID, "combos": res.Combos,
		"summary": res.Summary, "text": res.Summary.String(),
	})
}

func (a *App) question(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Question string `json:"question"`
	}
	if !readJSON(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	ans, err := a.Assistant.Answer(r.Context(), body.Question)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, ans)
}

func (a *App) solve(w http.ResponseWriter, r *http.Request) {
	var body solve.Request
	if !readJSON(w, r, &body) {
		return
	}
	res, err := a.Solver.Solve(r.Context(), body)
	if errors.Is(err, solve.ErrScenario) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, res)
}

/* ----- coach ----- */

func (a *App) ask(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if !readJSON(w, r, &body) {
		return
	}
	sid := strings.TrimSpace(r.Header.Get("X-Session-ID"))
	if sid == "" {
		sid = uuid.NewString()
	}
	level, err := strconv.Atoi(strings.TrimSpace(r.Header.Get("X-Skill-Level")))
	if err != nil {
		level = 1
	}
	w.Header().Set("X-Session-ID", sid)

	answer, err := a.Coach.Ask(r.Context(), sid, level, body.Text)
	switch {
	case errors.Is(err, coach.ErrEmptyQuestion):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, llm.ErrDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		a.fail(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"question": strings.TrimSpace(body.Text), "answer": answer, "session_id": sid})
}

func (a *App) closeSession(w http.ResponseWriter, r *http.Request) {
	sid := strings.TrimSpace(r.Header.Get("X-Session-ID"))
	if sid == "" {
		writeError(w, http.StatusBadRequest, "X-Session-ID header is required")
		return
	}
	writeJSON(w, map[string]any{"closed": a.Coach.Close(sid)})
}

/* ----- quiz ----- */

type levelBody struct {
	SkillLevel int `json:"skill_level"`
}

func (b levelBody) level() int {
	if b.SkillLevel == 0 {
		return 1
	}
	return b.SkillLevel
}

func (a *App) quizGenerate(w http.ResponseWriter, r *http.Request) {
	var body levelBody
	if !readJSON(w, r, &body) {
		return
	}
	g, err := a.Quiz.Generate(r.Context(), body.level())
	var perr *quiz.ParseError
	switch {
	case errors.As(err, &perr):
		writeJSON(w, map[string]any{"error": "Could not parse quiz JSON.", "raw": perr.Raw})
		return
	case errors.Is(err, llm.ErrDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		a.fail(w, r, err)
		return
	}
	writeJSON(w, g)
}

func (a *App) quizStatic(w http.ResponseWriter, r *http.Request) {
	var body levelBody
	if !readJSON(w, r, &body) {
		return
	}
	writeJSON(w, map[string]any{"questions": a.Quiz.Static(body.level())})
}

func (a *App) quizFeedback(w http.ResponseWriter, r *http.Request) {
	var body struct {
		levelBody
		Answers []quiz.UserAnswer `json:"answers"`
	}
	if !readJSON(w, r, &body) {
		return
	}
	writeJSON(w, a.Quiz.Feedback(r.Context(), body.level(), body.Answers))
}

/* ----- helpers ----- */

func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	a.Logger.Error("request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "err", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

// readJSON decodes an optional JSON body; an empty body leaves v untouched.
func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("http", "method", r.Method, "path", r.URL.Path, "status", ww.Status(), "bytes", ww.BytesWritten())
		})
	}
}

// cors answers preflight requests and echoes allowed origins. "*" allows any.
func cors(origins []string) func(http.Handler) http.Handler {
	allowed := map[string]bool{}
	for _, o := range origins {
		allowed[strings.TrimRight(o, "/")] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowed["*"] || allowed[origin]) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, X-Session-ID, X-Skill-Level")
				h.Set("Access-Control-Expose-Headers", "X-Session-ID")
				h.Add("Vary", "Origin")
			}
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
