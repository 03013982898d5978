package qdrant

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"

	"github.com/poiesic/shelfvec/core"
)

type fakePoint struct {
	Vector  []float32
	Payload map[string]any
}

type fakeCollection struct {
	Size     int
	Distance string
	Points   map[string]fakePoint
}

// fakeQdrant is an in-memory stand-in for the subset of the Qdrant REST
// API the store uses.
type fakeQdrant struct {
	mu          sync.Mutex
	collections map[string]*fakeCollection

	creates      int
	createBodies []map[string]any
	scrolls      int
	deletes      int
	upserts      int

	// raceCreate makes GET report 404 while PUT reports 409, as when
	// another process creates the collection in between.
	raceCreate bool
	// upsertStatus, when set, is the HTTP status returned for upserts.
	upsertStatus int
	// omitVectorsCount drops vectors_count from collection info.
	omitVectorsCount bool
	// envelopeError makes upserts and deletes answer 200 with an error
	// status in the body.
	envelopeError string
	// describeGate, when set, holds collection GETs until it is closed.
	// describeStarted receives a value as each held GET arrives.
	describeGate    chan struct{}
	describeStarted chan struct{}
}

func newFakeQdrant() *fakeQdrant {
	return &fakeQdrant{collections: make(map[string]*fakeCollection)}
}

func writeResult(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"result": result, "status": "ok", "time": 0.001})
}

func writeEnvelopeError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"status": map[string]any{"error": msg}, "time": 0.001})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": map[string]any{"error": msg}})
}

func (f *fakeQdrant) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /collections", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		names := make([]map[string]string, 0)
		for name := range f.collections {
			names = append(names, map[string]string{"name": name})
		}
		writeResult(w, map[string]any{"collections": names})
	})

	mux.HandleFunc("GET /collections/{name}", func(w http.ResponseWriter, r *http.Request) {
		if f.describeGate != nil {
			select {
			case f.describeStarted <- struct{}{}:
			default:
			}
			<-f.describeGate
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		c, ok := f.collections[r.PathValue("name")]
		if !ok || f.raceCreate {
			writeError(w, http.StatusNotFound, "Not found: Collection doesn't exist!")
			return
		}
		info := map[string]any{
			"status":       "green",
			"points_count": len(c.Points),
			"config": map[string]any{
				"params": map[string]any{
					"vectors": map[string]any{"size": c.Size, "distance": c.Distance},
				},
			},
		}
		if !f.omitVectorsCount {
			info["vectors_count"] = len(c.Points)
		}
		writeResult(w, info)
	})

	mux.HandleFunc("PUT /collections/{name}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		name := r.PathValue("name")
		if _, ok := f.collections[name]; ok || f.raceCreate {
			writeError(w, http.StatusConflict, "Wrong input: Collection `"+name+"` already exists!")
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		vectors := body["vectors"].(map[string]any)
		f.collections[name] = &fakeCollection{
			Size:     int(vectors["size"].(float64)),
			Distance: vectors["distance"].(string),
			Points:   make(map[string]fakePoint),
		}
		f.creates++
		f.createBodies = append(f.createBodies, body)
		writeResult(w, true)
	})

	mux.HandleFunc("POST /collections/{name}/points/scroll", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.scrolls++
		c, ok := f.collections[r.PathValue("name")]
		if !ok {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}
		var body struct {
			Limit  int    `json:"limit"`
			Offset string `json:"offset"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		ids := make([]string, 0, len(c.Points))
		for id := range c.Points {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		start, _ := slices.BinarySearch(ids, body.Offset)
		end := min(start+body.Limit, len(ids))

		points := make([]map[string]any, 0, end-start)
		for _, id := range ids[start:end] {
			points = append(points, map[string]any{"id": id})
		}
		var next any
		if end < len(ids) {
			next = ids[end]
		}
		writeResult(w, map[string]any{"points": points, "next_page_offset": next})
	})

	mux.HandleFunc("POST /collections/{name}/points/delete", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.deletes++
		if f.envelopeError != "" {
			writeEnvelopeError(w, f.envelopeError)
			return
		}
		c, ok := f.collections[r.PathValue("name")]
		if !ok {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}
		var body struct {
			Points []string `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		for _, id := range body.Points {
			delete(c.Points, id)
		}
		writeResult(w, map[string]any{"operation_id": f.deletes, "status": "completed"})
	})

	mux.HandleFunc("PUT /collections/{name}/points", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.upserts++
		if f.upsertStatus != 0 {
			writeError(w, f.upsertStatus, "Service internal error")
			return
		}
		if f.envelopeError != "" {
			writeEnvelopeError(w, f.envelopeError)
			return
		}
		c, ok := f.collections[r.PathValue("name")]
		if !ok {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}
		var body struct {
			Points []struct {
				ID      string         `json:"id"`
				Vector  []float32      `json:"vector"`
				Payload map[string]any `json:"payload"`
			} `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		for _, p := range body.Points {
			if len(p.Vector) != c.Size {
				writeError(w, http.StatusBadRequest, "Wrong input: Vector dimension error")
				return
			}
		}
		for _, p := range body.Points {
			c.Points[p.ID] = fakePoint{Vector: p.Vector, Payload: p.Payload}
		}
		writeResult(w, map[string]any{"operation_id": f.upserts, "status": "completed"})
	})

	return mux
}

func (f *fakeQdrant) pointCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.collections[name]; ok {
		return len(c.Points)
	}
	return -1
}

func (f *fakeQdrant) seed(name string, size, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &fakeCollection{Size: size, Distance: "Cosine", Points: make(map[string]fakePoint)}
	for i := 0; i < n; i++ {
		id := core.PointIDFromKey(fmt.Sprintf("seed-%d", i)).String()
		c.Points[id] = fakePoint{Vector: make([]float32, size)}
	}
	f.collections[name] = c
}

func newTestStore(t *testing.T, f *fakeQdrant, pageSize int) *Store {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	s, err := NewStore(Config{
		URL:            srv.URL + "/",
		Collection:     storageConfig(4),
		ScrollPageSize: pageSize,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

type fakeCounts struct {
	creates, scrolls, deletes, upserts int
}

func (f *fakeQdrant) counts() fakeCounts {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fakeCounts{creates: f.creates, scrolls: f.scrolls, deletes: f.deletes, upserts: f.upserts}
}
