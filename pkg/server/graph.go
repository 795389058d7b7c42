package server

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/pangraph/pkg/cache"
	perrors "github.com/matzehuels/pangraph/pkg/errors"
	pio "github.com/matzehuels/pangraph/pkg/io"
	"github.com/matzehuels/pangraph/pkg/pipeline"
)

var errNoGraph = perrors.New(perrors.ErrCodeNotFound, "no graph loaded")

type loadRequest struct {
	Source    string `json:"source" validate:"required,max=4096"`
	Refresh   bool   `json:"refresh"`
	NoGenomes bool   `json:"no_genomes"`
	Wait      bool   `json:"wait"`
}

type statsResponse struct {
	Nodes      int     `json:"nodes"`
	Edges      int     `json:"edges"`
	Genomes    int     `json:"genomes"`
	Lines      int     `json:"lines"`
	Sources    int     `json:"sources"`
	ParseMS    float64 `json:"parse_ms"`
	LayoutMS   float64 `json:"layout_ms"`
	TotalMS    float64 `json:"total_ms"`
	CacheHit   bool    `json:"cache_hit"`
	CacheSaved bool    `json:"cache_saved"`
}

type statusResponse struct {
	Status  string         `json:"status"` // "empty", "loading" or "loaded"
	Source  string         `json:"source,omitempty"`
	Loading string         `json:"loading,omitempty"`
	Stats   *statsResponse `json:"stats,omitempty"`
}

func ms(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }

func newStats(r *pipeline.Result) *statsResponse {
	return &statsResponse{
		Nodes:      r.Stats.NodeCount,
		Edges:      r.Stats.EdgeCount,
		Genomes:    r.Stats.GenomeCount,
		Lines:      r.Stats.Lines,
		Sources:    r.Stats.Sources,
		ParseMS:    ms(r.Stats.ParseTime),
		LayoutMS:   ms(r.Stats.LayoutTime),
		TotalMS:    ms(r.Stats.TotalTime),
		CacheHit:   r.CacheInfo.GraphHit,
		CacheSaved: r.CacheInfo.Saved,
	}
}

// load starts a background load. With wait set it blocks and reports the
// outcome; otherwise it answers 202 and the client polls /status.
func (s *Server) load(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if err := s.decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	source := s.resolveSource(req.Source)
	opts := pipeline.Options{
		Refresh:   req.Refresh,
		NoGenomes: req.NoGenomes,
		Layout:    s.cfg.Layout,
	}
	task, err := s.loader.Start(r.Context(), source, opts)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.logger.Info("load started", "source", source)

	if !req.Wait {
		respondJSON(w, http.StatusAccepted, statusResponse{Status: "loading", Loading: source})
		return
	}
	result, err := task.Join()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, statusResponse{Status: "loaded", Source: result.Source, Stats: newStats(result)})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Status: "empty"}
	if cur := s.loader.Current(); cur != nil {
		resp.Status = "loaded"
		resp.Source = cur.Source
		resp.Stats = newStats(cur)
	}
	if t := s.loader.Running(); t != nil {
		resp.Status = "loading"
		resp.Loading = t.Source
	}
	respondJSON(w, http.StatusOK, resp)
}

// graphCache memoizes the JSON encoding of the current graph.
type graphCache struct {
	result *pipeline.Result
	data   []byte
	etag   string
}

func (s *Server) graphJSON(cur *pipeline.Result) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.graph.result == cur {
		return s.graph.data, s.graph.etag, nil
	}
	var buf bytes.Buffer
	if err := pio.WriteJSON(cur.Graph, &buf); err != nil {
		return nil, "", err
	}
	s.graph = graphCache{result: cur, data: buf.Bytes(), etag: `"` + cache.Hash(buf.Bytes()) + `"`}
	return s.graph.data, s.graph.etag, nil
}

func (s *Server) getGraph(w http.ResponseWriter, r *http.Request) {
	cur := s.loader.Current()
	if cur == nil {
		s.respondError(w, r, errNoGraph)
		return
	}
	data, etag, err := s.graphJSON(cur)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

type nodeResponse struct {
	ID       int      `json:"id"`
	Length   int      `json:"length"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Parents  []int    `json:"parents"`
	Children []int    `json:"children"`
	Genomes  []string `json:"genomes"`
}

// nodeParam parses {id} and checks it against the current graph.
func (s *Server) nodeParam(r *http.Request) (*pipeline.Result, int, error) {
	cur := s.loader.Current()
	if cur == nil {
		return nil, 0, errNoGraph
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return nil, 0, perrors.New(perrors.ErrCodeInvalidInput, "node id must be an integer")
	}
	if err := perrors.ValidateNodeID(id, cur.Graph.NodeCount()); err != nil {
		return nil, 0, err
	}
	return cur, id, nil
}

func (s *Server) getNode(w http.ResponseWriter, r *http.Request) {
	cur, id, err := s.nodeParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	n, err := cur.Graph.Node(id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	genomes := cur.Genomes.Genomes(id)
	if genomes == nil {
		genomes = []string{}
	}
	respondJSON(w, http.StatusOK, nodeResponse{
		ID:       n.ID,
		Length:   n.Length,
		X:        n.X,
		Y:        n.Y,
		Parents:  append([]int{}, cur.Graph.Incoming(id)...),
		Children: append([]int{}, cur.Graph.Outgoing(id)...),
		Genomes:  genomes,
	})
}

func (s *Server) getSegment(w http.ResponseWriter, r *http.Request) {
	cur, id, err := s.nodeParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	seq, err := cur.Segments.Get(id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(seq))
}
