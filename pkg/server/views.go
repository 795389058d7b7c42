package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/pangraph/pkg/condition"
	perrors "github.com/matzehuels/pangraph/pkg/errors"
	pio "github.com/matzehuels/pangraph/pkg/io"
	"github.com/matzehuels/pangraph/pkg/observability"
	"github.com/matzehuels/pangraph/pkg/pipeline"
	"github.com/matzehuels/pangraph/pkg/session"
	"github.com/matzehuels/pangraph/pkg/window"
)

// liveView is the in-memory window behind a stored view.
type liveView struct {
	mu     sync.Mutex
	result *pipeline.Result
	win    *window.Window
	conds  *condition.Set
	state  *session.View
}

// openView loads the stored state for {id} and returns its live window,
// rebuilding it when this instance has not seen the view or the graph
// changed since.
func (s *Server) openView(r *http.Request) (*liveView, error) {
	id := chi.URLParam(r, "id")
	if err := session.ValidateID(id); err != nil {
		return nil, err
	}
	state, err := s.views.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	cur := s.loader.Current()
	if cur == nil {
		return nil, errNoGraph
	}
	if state.Source != cur.Source {
		return nil, perrors.New(perrors.ErrCodeSessionNotFound, "view %s belongs to %s, which is not loaded", id, state.Source)
	}

	s.mu.Lock()
	lv, ok := s.live[id]
	s.mu.Unlock()
	if ok && lv.result == cur {
		lv.mu.Lock()
		lv.state = state
		lv.mu.Unlock()
		return lv, nil
	}

	fresh, err := s.restore(cur, state)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// A concurrent request may have restored the same view meanwhile.
	if lv, ok := s.live[id]; ok && lv.result == cur {
		return lv, nil
	}
	s.live[id] = fresh
	return fresh, nil
}

// restore rebuilds a window and condition set from stored state.
func (s *Server) restore(cur *pipeline.Result, state *session.View) (*liveView, error) {
	win, err := cur.NewWindow(state.Center, state.Radius)
	if err != nil {
		return nil, err
	}
	if state.Hi >= state.Lo {
		if err := win.SetRange(state.Lo, state.Hi); err != nil {
			return nil, err
		}
	}
	conds := condition.NewSet(cur.Genomes, s.cfg.Palette...)
	for _, expr := range state.Conditions {
		if _, err := conds.AddExpr(expr); err != nil {
			return nil, fmt.Errorf("restore condition: %w", err)
		}
	}
	return &liveView{result: cur, win: win, conds: conds, state: state}, nil
}

// save writes the window state back to the store. Center and radius are
// only changed by recentering, so they are kept from the state. Callers hold
// lv.mu.
func (s *Server) save(ctx context.Context, lv *liveView) error {
	lv.state.Lo, lv.state.Hi = lv.win.Range()
	lv.state.Conditions = lv.conds.Exprs()
	lv.state.Touch(s.cfg.ViewTTL)
	return s.views.Set(ctx, lv.state)
}

type viewResponse struct {
	ID         string   `json:"id"`
	Source     string   `json:"source"`
	Mode       string   `json:"mode"`
	Conditions []string `json:"conditions"`
	View       pio.View `json:"view"`
}

type deltaResponse struct {
	viewResponse
	Added         []int `json:"added"`
	Removed       []int `json:"removed"`
	AddedChains   int   `json:"added_chains"`
	RemovedChains int   `json:"removed_chains"`
}

func (lv *liveView) response() viewResponse {
	exprs := lv.conds.Exprs()
	if exprs == nil {
		exprs = []string{}
	}
	return viewResponse{
		ID:         lv.state.ID,
		Source:     lv.state.Source,
		Mode:       lv.state.Mode,
		Conditions: exprs,
		View:       lv.result.View(lv.win, lv.conds),
	}
}

func (lv *liveView) deltaResponse(d window.Delta) deltaResponse {
	added := make([]int, len(d.Added))
	for i, n := range d.Added {
		added[i] = n.ID
	}
	removed := d.Removed
	if removed == nil {
		removed = []int{}
	}
	return deltaResponse{
		viewResponse:  lv.response(),
		Added:         added,
		Removed:       removed,
		AddedChains:   len(d.AddedChains),
		RemovedChains: len(d.RemovedChains),
	}
}

type createViewRequest struct {
	Center     *int     `json:"center" validate:"omitempty,min=0"`
	Radius     *int     `json:"radius" validate:"omitempty,min=0,max=1000000"`
	Mode       string   `json:"mode" validate:"omitempty,oneof=center info"`
	Conditions []string `json:"conditions" validate:"omitempty,max=16,dive,required,max=256"`
}

func (s *Server) createView(w http.ResponseWriter, r *http.Request) {
	var req createViewRequest
	if err := s.decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	cur := s.loader.Current()
	if cur == nil {
		s.respondError(w, r, errNoGraph)
		return
	}
	center, radius := pipeline.DefaultCenter, s.cfg.Radius
	if req.Center != nil {
		center = *req.Center
	}
	if req.Radius != nil {
		radius = *req.Radius
	}

	state := session.New(cur.Source, center, radius, s.cfg.ViewTTL)
	state.Conditions = req.Conditions
	if req.Mode != "" {
		state.Mode = req.Mode
	}
	lv, err := s.restore(cur, state)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	lv.mu.Lock()
	defer lv.mu.Unlock()
	if err := s.save(r.Context(), lv); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.mu.Lock()
	s.live[state.ID] = lv
	s.mu.Unlock()

	observability.Window().OnWindowChange(r.Context(), "create", lv.win.Len(), 0)
	s.logger.Debug("view created", "id", state.ID, "center", center, "radius", radius, "nodes", lv.win.Len())
	respondJSON(w, http.StatusCreated, lv.response())
}

func (s *Server) getView(w http.ResponseWriter, r *http.Request) {
	lv, err := s.openView(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	lv.mu.Lock()
	defer lv.mu.Unlock()
	respondJSON(w, http.StatusOK, lv.response())
}

func (s *Server) deleteView(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := session.ValidateID(id); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.views.Delete(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.mu.Lock()
	delete(s.live, id)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// mutate runs fn on the view under its lock, saves the result and answers
// with the delta.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, op string, fn func(lv *liveView) (window.Delta, error)) {
	lv, err := s.openView(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	lv.mu.Lock()
	defer lv.mu.Unlock()

	d, err := fn(lv)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.save(r.Context(), lv); err != nil {
		s.respondError(w, r, err)
		return
	}
	observability.Window().OnWindowChange(r.Context(), op, len(d.Added), len(d.Removed))
	respondJSON(w, http.StatusOK, lv.deltaResponse(d))
}

type centerRequest struct {
	Node   int  `json:"node" validate:"min=0"`
	Radius *int `json:"radius" validate:"omitempty,min=0,max=1000000"`
}

func (s *Server) centerView(w http.ResponseWriter, r *http.Request) {
	var req centerRequest
	if err := s.decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.mutate(w, r, "center", func(lv *liveView) (window.Delta, error) {
		radius := lv.state.Radius
		if req.Radius != nil {
			radius = *req.Radius
		}
		before := lv.win.Visible()
		if err := lv.win.SetCenter(req.Node, radius); err != nil {
			return window.Delta{}, err
		}
		lv.state.Center, lv.state.Radius = req.Node, radius
		return diff(before, lv.win.Visible()), nil
	})
}

// diff reports a recenter as a delta between two visible sets.
func diff(before, after []window.DrawNode) window.Delta {
	was := make(map[int]bool, len(before))
	for _, n := range before {
		was[n.ID] = true
	}
	var d window.Delta
	for _, n := range after {
		if was[n.ID] {
			delete(was, n.ID)
			continue
		}
		d.Added = append(d.Added, n)
	}
	for _, n := range before {
		if was[n.ID] {
			d.Removed = append(d.Removed, n.ID)
		}
	}
	return d
}

type zoomRequest struct {
	Steps int `json:"steps" validate:"required,min=-1000,max=1000"`
}

func (s *Server) zoomView(w http.ResponseWriter, r *http.Request) {
	var req zoomRequest
	if err := s.decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	op := "zoom_out"
	if req.Steps < 0 {
		op = "zoom_in"
	}
	s.mutate(w, r, op, func(lv *liveView) (window.Delta, error) {
		return lv.win.Zoom(req.Steps), nil
	})
}

const (
	opGrowRoot   = "grow_root"
	opGrowLeaf   = "grow_leaf"
	opShrinkRoot = "shrink_root"
	opShrinkLeaf = "shrink_leaf"
)

func (s *Server) stepView(op string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mutate(w, r, op, func(lv *liveView) (window.Delta, error) {
			switch op {
			case opGrowRoot:
				return lv.win.GrowRoot(), nil
			case opGrowLeaf:
				return lv.win.GrowLeaf(), nil
			case opShrinkRoot:
				return lv.win.ShrinkRoot(), nil
			case opShrinkLeaf:
				return lv.win.ShrinkLeaf(), nil
			}
			return window.Delta{}, perrors.New(perrors.ErrCodeInternal, "unknown window op %q", op)
		})
	}
}

type modeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=center info"`
}

func (s *Server) setMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := s.decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.mutate(w, r, "mode", func(lv *liveView) (window.Delta, error) {
		lv.state.Mode = req.Mode
		return window.Delta{}, nil
	})
}

type conditionRequest struct {
	Expr string `json:"expr" validate:"required,max=256"`
}

func (s *Server) addCondition(w http.ResponseWriter, r *http.Request) {
	var req conditionRequest
	if err := s.decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.mutate(w, r, "condition_add", func(lv *liveView) (window.Delta, error) {
		_, err := lv.conds.AddExpr(req.Expr)
		return window.Delta{}, err
	})
}

func (s *Server) removeCondition(w http.ResponseWriter, r *http.Request) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		s.respondError(w, r, perrors.New(perrors.ErrCodeInvalidInput, "condition index must be an integer"))
		return
	}
	s.mutate(w, r, "condition_remove", func(lv *liveView) (window.Delta, error) {
		return window.Delta{}, lv.conds.Remove(i)
	})
}

type clickRequest struct {
	Kind string `json:"kind" validate:"required,oneof=node edge"`
	Node int    `json:"node" validate:"min=0"`
	From int    `json:"from" validate:"min=0"`
	To   int    `json:"to" validate:"min=0"`
	Mode string `json:"mode" validate:"omitempty,oneof=center info"`
}

type clickResponse struct {
	deltaResponse
	Message string `json:"message"`
}

func (s *Server) click(w http.ResponseWriter, r *http.Request) {
	var req clickRequest
	if err := s.decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	lv, err := s.openView(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	lv.mu.Lock()
	defer lv.mu.Unlock()

	target := window.NodeTarget(req.Node)
	if req.Kind == "edge" {
		target = window.EdgeTarget(req.From, req.To)
	}
	mode := req.Mode
	if mode == "" {
		mode = lv.state.Mode
	}
	var h window.Handler = window.InfoHandler{Segments: lv.result.Segments, Genomes: lv.result.Genomes}
	if mode == session.ModeCenter {
		h = window.CenterHandler{Radius: lv.state.Radius}
	}

	before := lv.win.Visible()
	msg, err := lv.win.Click(target, h)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	d := diff(before, lv.win.Visible())
	_, recentered := h.(window.CenterHandler)
	recentered = recentered && target.Kind == window.TargetNode
	if recentered {
		lv.state.Center = req.Node
	}
	if recentered || !d.Empty() {
		if err := s.save(r.Context(), lv); err != nil {
			s.respondError(w, r, err)
			return
		}
		observability.Window().OnWindowChange(r.Context(), "click", len(d.Added), len(d.Removed))
	}
	respondJSON(w, http.StatusOK, clickResponse{deltaResponse: lv.deltaResponse(d), Message: msg})
}

var contentTypes = map[string]string{
	pipeline.FormatDOT:  "text/vnd.graphviz",
	pipeline.FormatSVG:  "image/svg+xml",
	pipeline.FormatPNG:  "image/png",
	pipeline.FormatPDF:  "application/pdf",
	pipeline.FormatJSON: "application/json",
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = pipeline.FormatSVG
	}
	if err := pipeline.ValidateFormat(format); err != nil {
		s.respondError(w, r, perrors.Wrap(perrors.ErrCodeInvalidInput, err, "export"))
		return
	}
	detailed, _ := strconv.ParseBool(r.URL.Query().Get("detailed"))

	lv, err := s.openView(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	lv.mu.Lock()
	v := lv.result.View(lv.win, lv.conds)
	lv.mu.Unlock()

	artifacts, err := pipeline.Render(v, pipeline.RenderOptions{Formats: []string{format}, Detailed: detailed})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	_, _ = w.Write(artifacts[format])
}
